package sandbox

import (
	"encoding/json"
	"fmt"
	"os"

	"tiquetera/internal/api"
	"tiquetera/internal/catalogs"
	"tiquetera/internal/events"
)

// FixtureUser is a pre-registered account.
type FixtureUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Verified  bool   `json:"verified"`
}

// Fixtures is the initial data the sandbox serves.
type Fixtures struct {
	Departments []catalogs.Entry            `json:"departments"`
	Cities      map[string][]catalogs.Entry `json:"cities"`
	// DocumentTypes left empty makes the document type endpoint answer 404.
	DocumentTypes []catalogs.Entry `json:"document_types"`
	Events        []events.Event   `json:"events"`
	Users         []FixtureUser    `json:"users"`
}

// LoadFixtures reads fixtures from a JSON file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	var f Fixtures
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixtures saves fixtures as indented JSON.
func WriteFixtures(path string, f *Fixtures) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func ticketType(id int, name string, price float64, capacity, sold int) events.TicketType {
	return events.TicketType{
		ID:              id,
		Price:           api.Decimal(price),
		MaximumCapacity: capacity,
		CapacitySold:    sold,
		Info:            events.TicketTypeInfo{Name: name},
	}
}

// DefaultFixtures returns a small Colombian catalog with a handful of
// events covering every status.
func DefaultFixtures() *Fixtures {
	return &Fixtures{
		Departments: []catalogs.Entry{
			{ID: "5", Name: "Antioquia"},
			{ID: "11", Name: "Bogotá D.C."},
			{ID: "76", Name: "Valle del Cauca"},
			{ID: "8", Name: "Atlántico"},
		},
		Cities: map[string][]catalogs.Entry{
			"5":  {{ID: "5001", Name: "Medellín"}, {ID: "5088", Name: "Bello"}, {ID: "5266", Name: "Envigado"}},
			"11": {{ID: "11001", Name: "Bogotá"}},
			"76": {{ID: "76001", Name: "Cali"}, {ID: "76520", Name: "Palmira"}},
			"8":  {{ID: "8001", Name: "Barranquilla"}},
		},
		DocumentTypes: catalogs.DefaultDocumentTypes(),
		Events: []events.Event{
			{
				ID:          1,
				Name:        "Festival Cordillera",
				Description: "Dos días de música latinoamericana al aire libre.",
				Status:      events.StatusActive,
				Start:       "2030-09-20T14:00:00Z",
				End:         "2030-09-21T23:00:00Z",
				City:        "Bogotá",
				Department:  "Bogotá D.C.",
				Country:     "Colombia",
				Category:    "Música",
				TicketTypes: []events.TicketType{
					ticketType(11, "General", 180000, 5000, 1200),
					ticketType(12, "VIP", 450000, 300, 298),
				},
			},
			{
				ID:          2,
				Name:        "Charla de emprendimiento",
				Description: "Encuentro abierto con fundadores locales.",
				Status:      events.StatusActive,
				Start:       "2030-05-10T18:00:00Z",
				City:        "Medellín",
				Department:  "Antioquia",
				Country:     "Colombia",
				Category:    "Conferencia",
				TicketTypes: []events.TicketType{
					ticketType(21, "Entrada libre", 0, 200, 40),
				},
			},
			{
				ID:          3,
				Name:        "Salsa al Parque",
				Description: "Orquestas invitadas y pista de baile.",
				Status:      events.StatusScheduled,
				Date:        "2030-12-01",
				City:        "Cali",
				Department:  "Valle del Cauca",
				Country:     "Colombia",
				Category:    "Música",
				TicketTypes: []events.TicketType{
					ticketType(31, "Platea", 60000, 800, 0),
				},
			},
			{
				ID:          4,
				Name:        "Carnaval Tour",
				Description: "Recorrido cancelado por clima.",
				Status:      events.StatusCancelled,
				Start:       "2030-02-28T10:00:00Z",
				City:        "Barranquilla",
				Department:  "Atlántico",
				Country:     "Colombia",
				Category:    "Cultura",
				TicketTypes: []events.TicketType{
					ticketType(41, "General", 35000, 100, 10),
				},
			},
		},
		Users: []FixtureUser{
			{Username: "demo", Email: "demo@tiquetera.test", Password: "demo12345", FirstName: "Demo", LastName: "Tiquetera", Verified: true},
		},
	}
}
