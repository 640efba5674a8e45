package vendo

// machines is the set shown on the locator map.
var machines = []Machine{
	{
		ID:        "4",
		Name:      "Osorio Diaper Vendo",
		Latitude:  6.946384237309941,
		Longitude: 124.88682823304704,
	},
	{
		ID:        "5",
		Name:      "University of Southern Mindanao - Kidapawan City Campus",
		Latitude:  7.031171602271241,
		Longitude: 125.11383375339688,
	},
}

type slot struct {
	id       int
	apiID    int
	alt      string
	imageKey string
}

// slots is the product allow-list per machine id.
var slots = map[string][]slot{
	"4": {
		{id: 58, apiID: 58, alt: "Pampers Small", imageKey: "pampers-small"},
		{id: 59, apiID: 59, alt: "Pampers Medium", imageKey: "pampers-medium"},
		{id: 60, apiID: 60, alt: "Pampers Large", imageKey: "pampers-large"},
		{id: 61, alt: "Wipes", imageKey: "wipes"},
		{id: 62, alt: "Tissue", imageKey: "tissue"},
	},
	"5": {
		{id: 68, alt: "Pampers Small", imageKey: "pampers-small"},
		{id: 69, alt: "Pampers Medium", imageKey: "pampers-medium"},
		{id: 70, alt: "Pampers Large", imageKey: "pampers-large"},
		{id: 71, alt: "Wipes", imageKey: "wipes"},
		{id: 72, alt: "Tissue", imageKey: "tissue"},
	},
}

// Machines returns a copy of the locator's machine list.
func Machines() []Machine {
	out := make([]Machine, len(machines))
	copy(out, machines)
	return out
}

// FindMachine looks a machine up by id.
func FindMachine(id string) (Machine, bool) {
	for _, m := range machines {
		if m.ID == id {
			return m, true
		}
	}
	return Machine{}, false
}

// Known reports whether id has a product allow-list.
func Known(machineID string) bool {
	_, ok := slots[machineID]
	return ok
}

// Slots returns placeholder products for machineID with unknown price and
// stock. Unknown ids yield an empty, non-nil slice.
func Slots(machineID string) []Product {
	defs := slots[machineID]
	out := make([]Product, 0, len(defs))
	for _, s := range defs {
		out = append(out, Product{
			ID:       s.id,
			APIID:    s.apiID,
			Alt:      s.alt,
			ImageURL: images[s.imageKey],
		})
	}
	return out
}
