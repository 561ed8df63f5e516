package functions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/enesunal-m/voiceagent/business"
)

// Names of the built-in functions.
const (
	AgentFiller       = "agent_filler"
	FindCustomer      = "find_customer"
	GetAppointments   = "get_appointments"
	GetOrders         = "get_orders"
	CreateAppointment = "create_appointment"
	CheckAvailability = "check_availability"
	EndCall           = "end_call"
)

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func enum(desc string, values ...string) *jsonschema.Schema {
	s := str(desc)
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return s
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

const customerIDDesc = "Customer ID in CUSTXXXX format, obtained from find_customer."

// Definitions of the built-in functions, in the order they are declared to the agent.
var builtinDefinitions = []Definition{
	{
		Name: AgentFiller,
		Description: "Say a short filler phrase before looking something up. " +
			"Call this instead of saying phrases like \"let me check\" yourself, " +
			"then call the lookup function straight away.",
		Parameters: object(map[string]*jsonschema.Schema{
			"message_type": enum("Use 'lookup' when about to search for information.", "lookup", "general"),
		}, "message_type"),
	},
	{
		Name: FindCustomer,
		Description: "Look up a customer's account by phone number, email address or customer ID. " +
			"Numbers spoken as IDs are formatted CUSTXXXX with leading zeros; " +
			"phone numbers are +1 followed by ten digits; emails are lower case.",
		Parameters: object(map[string]*jsonschema.Schema{
			"customer_id": str("Customer ID, e.g. 42 becomes CUST0042."),
			"phone":       str("Phone number with country code, e.g. +15551234567."),
			"email":       str("Email address, e.g. jane@example.com."),
		}),
	},
	{
		Name:        GetAppointments,
		Description: "List a customer's appointments. Requires a customer ID from find_customer.",
		Parameters: object(map[string]*jsonschema.Schema{
			"customer_id": str(customerIDDesc),
		}, "customer_id"),
	},
	{
		Name:        GetOrders,
		Description: "List a customer's orders. Requires a customer ID from find_customer.",
		Parameters: object(map[string]*jsonschema.Schema{
			"customer_id": str(customerIDDesc),
		}, "customer_id"),
	},
	{
		Name:        CreateAppointment,
		Description: "Book an appointment for a customer in a slot confirmed free by check_availability.",
		Parameters: object(map[string]*jsonschema.Schema{
			"customer_id": str(customerIDDesc),
			"date":        str("Appointment start in ISO format (YYYY-MM-DDTHH:MM:SS)."),
			"service":     enum("Type of service.", business.Services...),
		}, "customer_id", "date", "service"),
	},
	{
		Name:        CheckAvailability,
		Description: "List free appointment slots between two dates.",
		Parameters: object(map[string]*jsonschema.Schema{
			"start_date": str("Start in ISO format (YYYY-MM-DDTHH:MM:SS), usually now."),
			"end_date":   str("End in ISO format. Defaults to seven days after start_date."),
		}, "start_date"),
	},
	{
		Name: EndCall,
		Description: "End the conversation. Call this when the customer says goodbye, " +
			"thanks you to finish, or has nothing else to ask.",
		Parameters: object(map[string]*jsonschema.Schema{
			"farewell_type": enum("Type of farewell to use.", "thanks", "general", "help"),
		}, "farewell_type"),
	},
}

// NewBuiltin returns a registry with every built-in function bound to svc.
func NewBuiltin(svc business.Service) *Registry {
	b := builtins{svc: svc}
	handlers := map[string]Handler{
		AgentFiller:       b.agentFiller,
		FindCustomer:      b.findCustomer,
		GetAppointments:   b.getAppointments,
		GetOrders:         b.getOrders,
		CreateAppointment: b.createAppointment,
		CheckAvailability: b.checkAvailability,
		EndCall:           b.endCall,
	}
	r := NewRegistry()
	for _, def := range builtinDefinitions {
		r.MustRegister(def, handlers[def.Name])
	}
	return r
}

type builtins struct {
	svc business.Service
}

// param returns a non-empty string parameter. Numbers are accepted since
// models sometimes send bare ids.
func param(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// lookupError maps known lookup failures to the messages the agent expects.
func lookupError(err error) (any, error) {
	switch {
	case errors.Is(err, business.ErrNoCriteria):
		return ErrorResult("No search criteria provided"), nil
	case errors.Is(err, business.ErrCustomerNotFound):
		return ErrorResult("Customer not found"), nil
	default:
		return nil, err
	}
}

func (b builtins) findCustomer(ctx context.Context, params map[string]any) (any, error) {
	c, err := b.svc.FindCustomer(ctx, business.CustomerQuery{
		Phone: param(params, "phone"),
		Email: param(params, "email"),
		ID:    param(params, "customer_id"),
	})
	if err != nil {
		return lookupError(err)
	}
	return c, nil
}

func (b builtins) getAppointments(ctx context.Context, params map[string]any) (any, error) {
	id := param(params, "customer_id")
	if id == "" {
		return ErrorResult("customer_id is required"), nil
	}
	apts, err := b.svc.CustomerAppointments(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"customer_id": id, "appointments": apts}, nil
}

func (b builtins) getOrders(ctx context.Context, params map[string]any) (any, error) {
	id := param(params, "customer_id")
	if id == "" {
		return ErrorResult("customer_id is required"), nil
	}
	orders, err := b.svc.CustomerOrders(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"customer_id": id, "orders": orders}, nil
}

func (b builtins) createAppointment(ctx context.Context, params map[string]any) (any, error) {
	id, date, service := param(params, "customer_id"), param(params, "date"), param(params, "service")
	if id == "" || date == "" || service == "" {
		return ErrorResult("customer_id, date, and service are required"), nil
	}
	apt, err := b.svc.ScheduleAppointment(ctx, id, date, service)
	if err != nil {
		return lookupError(err)
	}
	return apt, nil
}

func (b builtins) checkAvailability(ctx context.Context, params map[string]any) (any, error) {
	startStr := param(params, "start_date")
	if startStr == "" {
		return ErrorResult("start_date is required"), nil
	}
	start, err := business.ParseDate(startStr)
	if err != nil {
		return ErrorResult("start_date: " + err.Error()), nil
	}
	end := start.Add(7 * 24 * time.Hour)
	if endStr := param(params, "end_date"); endStr != "" {
		if end, err = business.ParseDate(endStr); err != nil {
			return ErrorResult("end_date: " + err.Error()), nil
		}
	}
	slots, err := b.svc.AvailableSlots(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{"available_slots": slots}, nil
}

func (b builtins) agentFiller(_ context.Context, params map[string]any) (any, error) {
	return NewFiller(param(params, "message_type")), nil
}

func (b builtins) endCall(_ context.Context, params map[string]any) (any, error) {
	return NewFarewell(param(params, "farewell_type")), nil
}
