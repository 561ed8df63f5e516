package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Options configures Open.
type Options struct {
	// Dir holds the Badger files. Empty runs in memory.
	Dir string
	// Sizes of the generated data set. Zero value uses DefaultSizes.
	Sizes Sizes
	// Seed for data generation. Zero derives one from the clock.
	Seed uint64
	// Delay is added to every lookup to mimic a remote database.
	Delay time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
	// Logger receives Badger warnings and errors. Nil uses the standard logger.
	Logger badger.Logger
}

// Store is the Badger-backed Service.
type Store struct {
	db    *badger.DB
	delay time.Duration
	now   func() time.Time

	// scheduleMu serialises appointment id allocation.
	scheduleMu sync.Mutex
}

var _ Service = (*Store)(nil)

const (
	prefixCustomer            = "customer/"
	prefixPhone               = "phone/"
	prefixEmail               = "email/"
	prefixAppointment         = "appointment/"
	prefixCustomerAppointment = "customer-appointment/"
	prefixOrder               = "order/"
	prefixCustomerOrder       = "customer-order/"
	prefixSlot                = "slot/"
	keyAppointmentCount       = "meta/appointment-count"
	keySample                 = "meta/sample"
)

// Open opens the store and seeds it on first use. An on-disk store that
// already holds data is reused as is.
func Open(opts Options) (*Store, error) {
	if opts.Sizes == (Sizes{}) {
		opts.Sizes = DefaultSizes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(opts.Now().UnixNano())
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(defaultLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("business: open badger: %w", err)
	}

	s := &Store{db: db, delay: opts.Delay, now: opts.Now}
	seeded, err := s.seeded()
	if err != nil {
		db.Close()
		return nil, err
	}
	if !seeded {
		if err := s.seed(Generate(opts.Sizes, opts.Seed, opts.Now())); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seeded() (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyAppointmentCount))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) seed(ds Dataset) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return wb.Set([]byte(key), b)
	}
	for _, c := range ds.Customers {
		if err := set(prefixCustomer+c.ID, c); err != nil {
			return err
		}
		if err := wb.Set([]byte(prefixPhone+c.Phone), []byte(c.ID)); err != nil {
			return err
		}
		if err := wb.Set([]byte(prefixEmail+c.Email), []byte(c.ID)); err != nil {
			return err
		}
	}
	for _, a := range ds.Appointments {
		if err := set(prefixAppointment+a.ID, a); err != nil {
			return err
		}
		if err := wb.Set([]byte(prefixCustomerAppointment+a.CustomerID+"/"+a.ID), nil); err != nil {
			return err
		}
		if err := wb.Set([]byte(prefixSlot+a.Date), []byte(a.ID)); err != nil {
			return err
		}
	}
	for _, o := range ds.Orders {
		if err := set(prefixOrder+o.ID, o); err != nil {
			return err
		}
		if err := wb.Set([]byte(prefixCustomerOrder+o.CustomerID+"/"+o.ID), nil); err != nil {
			return err
		}
	}
	if err := set(keySample, ds.Sample); err != nil {
		return err
	}
	if err := wb.Set([]byte(keyAppointmentCount), []byte(strconv.Itoa(len(ds.Appointments)))); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("business: seed: %w", err)
	}
	return nil
}

// wait applies the simulated lookup delay.
func (s *Store) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return "", err
	}
	b, err := item.ValueCopy(nil)
	return string(b), err
}

// indexed returns the ids under prefix+owner+"/" in key order.
func indexed(txn *badger.Txn, prefix, owner string) []string {
	p := []byte(prefix + owner + "/")
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(p):]))
	}
	return ids
}

// FindCustomer looks a customer up by phone, else email, else id.
func (s *Store) FindCustomer(ctx context.Context, q CustomerQuery) (Customer, error) {
	if err := s.wait(ctx); err != nil {
		return Customer{}, err
	}
	if q.Empty() {
		return Customer{}, ErrNoCriteria
	}
	var c Customer
	err := s.db.View(func(txn *badger.Txn) error {
		return s.findCustomer(txn, q, &c)
	})
	return c, err
}

func (s *Store) findCustomer(txn *badger.Txn, q CustomerQuery, c *Customer) error {
	id := q.ID
	var err error
	switch {
	case q.Phone != "":
		id, err = getString(txn, prefixPhone+q.Phone)
	case q.Email != "":
		id, err = getString(txn, prefixEmail+q.Email)
	}
	if err == nil {
		err = getJSON(txn, prefixCustomer+id, c)
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrCustomerNotFound
	}
	return err
}

// CustomerAppointments returns every appointment of a customer. An unknown
// customer has none.
func (s *Store) CustomerAppointments(ctx context.Context, customerID string) ([]Appointment, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	out := []Appointment{}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range indexed(txn, prefixCustomerAppointment, customerID) {
			var a Appointment
			if err := getJSON(txn, prefixAppointment+id, &a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// CustomerOrders returns every order of a customer.
func (s *Store) CustomerOrders(ctx context.Context, customerID string) ([]Order, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	out := []Order{}
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range indexed(txn, prefixCustomerOrder, customerID) {
			var o Order
			if err := getJSON(txn, prefixOrder+id, &o); err != nil {
				return err
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

// ScheduleAppointment books a new appointment for an existing customer.
// The date is stored as given.
func (s *Store) ScheduleAppointment(ctx context.Context, customerID, date, service string) (Appointment, error) {
	if err := s.wait(ctx); err != nil {
		return Appointment{}, err
	}
	s.scheduleMu.Lock()
	defer s.scheduleMu.Unlock()

	var apt Appointment
	err := s.db.Update(func(txn *badger.Txn) error {
		var c Customer
		if err := s.findCustomer(txn, CustomerQuery{ID: customerID}, &c); err != nil {
			return err
		}
		countStr, err := getString(txn, keyAppointmentCount)
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return fmt.Errorf("business: corrupt appointment count %q", countStr)
		}
		apt = Appointment{
			ID:           fmt.Sprintf("APT%04d", count),
			CustomerID:   c.ID,
			CustomerName: c.Name,
			Date:         date,
			Service:      service,
			Status:       "Scheduled",
		}
		b, err := json.Marshal(apt)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixAppointment+apt.ID), b); err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixCustomerAppointment+c.ID+"/"+apt.ID), nil); err != nil {
			return err
		}
		if err := txn.Set([]byte(prefixSlot+date), []byte(apt.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(keyAppointmentCount), []byte(strconv.Itoa(count+1)))
	})
	return apt, err
}

// AvailableSlots lists hourly slots between start and end inclusive that
// fall in business hours and are not booked.
func (s *Store) AvailableSlots(ctx context.Context, start, end time.Time) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	slots := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		for cur := start; !cur.After(end); cur = cur.Add(time.Hour) {
			if cur.Hour() < OpenHour || cur.Hour() >= CloseHour {
				continue
			}
			slot := cur.Format(DateLayout)
			_, err := txn.Get([]byte(prefixSlot + slot))
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				slots = append(slots, slot)
			case err != nil:
				return err
			}
		}
		return nil
	})
	return slots, err
}

// SampleData returns the customers picked for display at generation time.
func (s *Store) SampleData(ctx context.Context) ([]SampleCustomer, error) {
	var out []SampleCustomer
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keySample, &out)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []SampleCustomer{}, nil
	}
	return out, err
}

// defaultLogger keeps Badger quiet apart from warnings and errors.
type defaultLogger struct{}

func (defaultLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (defaultLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (defaultLogger) Infof(string, ...interface{})        {}
func (defaultLogger) Debugf(string, ...interface{})       {}
