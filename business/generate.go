package business

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Sizes sets how many records Generate creates.
type Sizes struct {
	Customers    int `yaml:"customers"`
	Appointments int `yaml:"appointments"`
	Orders       int `yaml:"orders"`
}

// DefaultSizes matches the demo data set.
var DefaultSizes = Sizes{Customers: 1000, Appointments: 500, Orders: 2000}

// sampleCount is the number of customers surfaced as sample data.
const sampleCount = 3

// Dataset is a complete generated data set.
type Dataset struct {
	Customers    []Customer
	Appointments []Appointment
	Orders       []Order
	Sample       []SampleCustomer
}

// Generate builds a data set around now. The same seed yields the same data.
func Generate(sizes Sizes, seed uint64, now time.Time) Dataset {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	day := 24 * time.Hour
	var ds Dataset

	for i := 0; i < sizes.Customers; i++ {
		ds.Customers = append(ds.Customers, Customer{
			ID:         fmt.Sprintf("CUST%04d", i),
			Name:       fmt.Sprintf("Customer %d", i),
			Phone:      fmt.Sprintf("+1555%07d", i),
			Email:      fmt.Sprintf("customer%d@example.com", i),
			JoinedDate: now.Add(-time.Duration(rng.IntN(8)) * day).Format(DateLayout),
		})
	}
	if len(ds.Customers) == 0 {
		return ds
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < sizes.Appointments; i++ {
		c := ds.Customers[rng.IntN(len(ds.Customers))]
		at := today.AddDate(0, 0, rng.IntN(8)).Add(time.Duration(OpenHour+rng.IntN(CloseHour-OpenHour)) * time.Hour)
		ds.Appointments = append(ds.Appointments, Appointment{
			ID:           fmt.Sprintf("APT%04d", i),
			CustomerID:   c.ID,
			CustomerName: c.Name,
			Date:         at.Format(DateLayout),
			Service:      Services[rng.IntN(len(Services))],
			Status:       AppointmentStatuses[rng.IntN(len(AppointmentStatuses))],
		})
	}

	for i := 0; i < sizes.Orders; i++ {
		c := ds.Customers[rng.IntN(len(ds.Customers))]
		ds.Orders = append(ds.Orders, Order{
			ID:           fmt.Sprintf("ORD%04d", i),
			CustomerID:   c.ID,
			CustomerName: c.Name,
			Date:         now.Add(-time.Duration(rng.IntN(8)) * day).Format(DateLayout),
			Items:        1 + rng.IntN(5),
			Total:        math.Round((10+rng.Float64()*490)*100) / 100,
			Status:       OrderStatuses[rng.IntN(len(OrderStatuses))],
		})
	}

	n := min(sampleCount, len(ds.Customers))
	for _, idx := range rng.Perm(len(ds.Customers))[:n] {
		ds.Sample = append(ds.Sample, ds.sampleFor(ds.Customers[idx]))
	}
	return ds
}

func (ds Dataset) sampleFor(c Customer) SampleCustomer {
	s := SampleCustomer{
		Customer:     c.Name,
		ID:           c.ID,
		Phone:        c.Phone,
		Email:        c.Email,
		Appointments: []SampleAppointment{},
		Orders:       []SampleOrder{},
	}
	for _, a := range ds.Appointments {
		if a.CustomerID != c.ID || len(s.Appointments) == 2 {
			continue
		}
		s.Appointments = append(s.Appointments, SampleAppointment{Service: a.Service, Date: a.Date[:10], Status: a.Status})
	}
	for _, o := range ds.Orders {
		if o.CustomerID != c.ID || len(s.Orders) == 2 {
			continue
		}
		s.Orders = append(s.Orders, SampleOrder{
			ID:     o.ID,
			Total:  fmt.Sprintf("$%.2f", o.Total),
			Status: o.Status,
			Date:   o.Date[:10],
			Items:  o.Items,
		})
	}
	return s
}
