// Package business is the customer, appointment and order back end the voice
// agent's functions query. Data is generated at start-up and kept in Badger,
// either in memory or in a data directory that survives restarts.
package business

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoCriteria is returned by FindCustomer when the query is empty.
	ErrNoCriteria = errors.New("business: no search criteria provided")
	// ErrCustomerNotFound is returned when no customer matches.
	ErrCustomerNotFound = errors.New("business: customer not found")
)

// DateLayout is the format of every date stored and returned by the service.
const DateLayout = "2006-01-02T15:04:05"

// Appointment services and statuses.
var (
	Services            = []string{"Consultation", "Follow-up", "Review", "Planning"}
	AppointmentStatuses = []string{"Scheduled", "Completed", "Cancelled"}
	OrderStatuses       = []string{"Pending", "Shipped", "Delivered", "Cancelled"}
)

// Business hours for bookable slots, [OpenHour, CloseHour).
const (
	OpenHour  = 9
	CloseHour = 17
)

type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	JoinedDate string `json:"joined_date"`
}

type Appointment struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Date         string `json:"date"`
	Service      string `json:"service"`
	Status       string `json:"status"`
}

type Order struct {
	ID           string  `json:"id"`
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Date         string  `json:"date"`
	Items        int     `json:"items"`
	Total        float64 `json:"total"`
	Status       string  `json:"status"`
}

// CustomerQuery selects a customer. Phone wins over Email, Email over ID.
type CustomerQuery struct {
	Phone string
	Email string
	ID    string
}

// Empty reports whether no criterion is set.
func (q CustomerQuery) Empty() bool {
	return q.Phone == "" && q.Email == "" && q.ID == ""
}

// SampleAppointment is the display form of an appointment in sample data.
type SampleAppointment struct {
	Service string `json:"Service"`
	Date    string `json:"Date"`
	Status  string `json:"Status"`
}

// SampleOrder is the display form of an order in sample data.
type SampleOrder struct {
	ID     string `json:"ID"`
	Total  string `json:"Total"`
	Status string `json:"Status"`
	Date   string `json:"Date"`
	Items  int    `json:"# Items"`
}

// SampleCustomer is shown to the user so they know what to ask about.
type SampleCustomer struct {
	Customer     string              `json:"Customer"`
	ID           string              `json:"ID"`
	Phone        string              `json:"Phone"`
	Email        string              `json:"Email"`
	Appointments []SampleAppointment `json:"Appointments"`
	Orders       []SampleOrder       `json:"Orders"`
}

// Service is the lookup contract used by the agent's functions.
type Service interface {
	FindCustomer(ctx context.Context, q CustomerQuery) (Customer, error)
	CustomerAppointments(ctx context.Context, customerID string) ([]Appointment, error)
	CustomerOrders(ctx context.Context, customerID string) ([]Order, error)
	ScheduleAppointment(ctx context.Context, customerID, date, service string) (Appointment, error)
	AvailableSlots(ctx context.Context, start, end time.Time) ([]string, error)
	SampleData(ctx context.Context) ([]SampleCustomer, error)
}

// ParseDate accepts the service layout, RFC 3339 and a bare date.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("date must be in ISO format (YYYY-MM-DDTHH:MM:SS)")
}
