package validation

import (
	"github.com/wrenchwise/workshop-api/internal/gateway"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// Domain-specific composite validators. Each is a fixed rule pipeline
// over the primitives; excludeID carries the record's own id on updates
// so uniqueness checks do not conflict with the record itself.

func Customer(data map[string]string, gw *gateway.Gateway, excludeID string) *Validator {
	v := New(data, gw)
	v.Required("name").Min("name", 2).Max("name", 120)
	v.Required("phone").Phone("phone").
		UniqueLive("phone", "customers", "phone", excludeID, "phone number is already registered to another customer")
	v.Sometimes("email", func(v *Validator) {
		v.Email("email").
			UniqueLive("email", "customers", "email", excludeID, "email is already registered to another customer")
	})
	v.Sometimes("address", func(v *Validator) { v.Max("address", 500) })
	v.Sometimes("notes", func(v *Validator) { v.Max("notes", 2000) })
	return v
}

func Vehicle(data map[string]string, gw *gateway.Gateway, excludeID string) *Validator {
	v := New(data, gw)
	v.Required("customer_id").Exists("customer_id", "customers", "id", "customer does not exist")
	v.Required("license_plate").Min("license_plate", 2).Max("license_plate", 16).
		UniqueLive("license_plate", "vehicles", "license_plate", excludeID, "license plate is already registered")
	v.Required("make").Max("make", 60)
	v.Required("model").Max("model", 60)
	v.Sometimes("year", func(v *Validator) { v.Numeric("year").Between("year", 1900, 2100) })
	v.Sometimes("vin", func(v *Validator) { v.Min("vin", 11).Max("vin", 17) })
	return v
}

func WorkOrder(data map[string]string, gw *gateway.Gateway) *Validator {
	v := New(data, gw)
	v.Required("customer_id").Exists("customer_id", "customers", "id", "customer does not exist")
	v.Required("vehicle_id").Exists("vehicle_id", "vehicles", "id", "vehicle does not exist")
	v.Required("description").Min("description", 3).Max("description", 5000)
	v.Required("priority").In("priority", types.WorkOrderPriorities)
	v.Sometimes("status", func(v *Validator) { v.In("status", types.WorkOrderStatuses) })
	v.Sometimes("labor_cost", func(v *Validator) {
		v.Numeric("labor_cost").Between("labor_cost", 0, types.MaxMoneyAmount)
	})
	v.Sometimes("parts_cost", func(v *Validator) {
		v.Numeric("parts_cost").Between("parts_cost", 0, types.MaxMoneyAmount)
	})
	v.Sometimes("assigned_to", func(v *Validator) {
		v.Exists("assigned_to", "users", "id", "assigned user does not exist")
	})
	return v
}

func InventoryItem(data map[string]string, gw *gateway.Gateway, excludeID string) *Validator {
	v := New(data, gw)
	v.Required("sku").Min("sku", 2).Max("sku", 64).
		UniqueLive("sku", "inventory_items", "sku", excludeID, "sku already exists")
	v.Required("name").Min("name", 2).Max("name", 200)
	v.Required("quantity").Numeric("quantity").Between("quantity", 0, 1_000_000)
	v.Required("min_quantity").Numeric("min_quantity").Between("min_quantity", 0, 1_000_000)
	v.Required("unit_price").Numeric("unit_price").Between("unit_price", 0, types.MaxMoneyAmount)
	return v
}

func UserAccount(data map[string]string, gw *gateway.Gateway, excludeID string) *Validator {
	v := New(data, gw)
	v.Required("username").Min("username", 3).Max("username", 40).
		Unique("username", "users", "username", excludeID, "username is already taken")
	v.Required("email").Email("email").
		Unique("email", "users", "email", excludeID, "email is already in use")
	v.Required("full_name").Min("full_name", 2).Max("full_name", 120)
	v.Required("role").Custom("role", types.ValidRole, "unknown role")
	v.Sometimes("password", func(v *Validator) { v.Min("password", 8).Max("password", 128) })
	return v
}
