package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"tiquetera/internal/api"
	"tiquetera/internal/events"
	"tiquetera/internal/sandbox"
	"tiquetera/internal/shared/config"
	"tiquetera/internal/shared/constants"
	"tiquetera/pkg/cache"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type Seeder struct {
	fixtures *sandbox.Fixtures
	rng      *rand.Rand
	now      time.Time
}

func main() {
	var (
		out       string
		extra     int
		users     int
		password  string
		seed      int64
		resetHost string
	)
	pflag.StringVarP(&out, "out", "o", "fixtures.json", "where to write the fixtures")
	pflag.IntVar(&extra, "events", 6, "generated events on top of the defaults")
	pflag.IntVar(&users, "users", 2, "generated buyer accounts on top of the demo user")
	pflag.StringVar(&password, "password", "qwerty123", "password for generated accounts")
	pflag.Int64Var(&seed, "seed", 1, "random seed, the same seed writes the same file")
	pflag.StringVar(&resetHost, "reset-snapshot", "", "drop the Redis catalog snapshot of this backend host")
	pflag.Parse()

	_ = godotenv.Load()

	fmt.Println("🌱 Starting Tiquetera Fixture Seeder...")

	seeder := &Seeder{
		fixtures: sandbox.DefaultFixtures(),
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now().UTC(),
	}

	fmt.Println("\n🌱 Seeding fixtures...")
	if err := seeder.SeedAll(extra, users, password); err != nil {
		log.Fatalf("Failed to seed fixtures: %v", err)
	}

	if err := sandbox.WriteFixtures(out, seeder.fixtures); err != nil {
		log.Fatalf("Failed to write fixtures: %v", err)
	}
	fmt.Printf("✅ Fixtures written to %s\n", out)

	if resetHost != "" {
		if err := resetSnapshot(config.Load(), resetHost); err != nil {
			log.Printf("Warning: Failed to drop catalog snapshot: %v", err)
		} else {
			fmt.Printf("🧹 Catalog snapshot for %s dropped\n", resetHost)
		}
	}

	fmt.Println("\n🎉 Seeding completed! Start the sandbox with SANDBOX_FIXTURES=" + out)
}

func (s *Seeder) SeedAll(extraEvents, extraUsers int, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must have at least 8 characters")
	}
	s.SeedUsers(extraUsers, password)
	s.SeedEvents(extraEvents)
	return nil
}

// SeedUsers adds verified buyer accounts next to the demo user.
func (s *Seeder) SeedUsers(n int, password string) {
	fmt.Println("  👤 Seeding users...")

	names := [][2]string{
		{"Valentina", "Restrepo"},
		{"Santiago", "Gómez"},
		{"Camila", "Ospina"},
		{"Mateo", "Cárdenas"},
		{"Isabella", "Muñoz"},
	}
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		username := fmt.Sprintf("%s%d", generateSlug(name[0]), i+1)
		user := sandbox.FixtureUser{
			Username:  username,
			Email:     username + "@tiquetera.test",
			Password:  password,
			FirstName: name[0],
			LastName:  name[1],
			Verified:  true,
		}
		s.fixtures.Users = append(s.fixtures.Users, user)
		fmt.Printf("    ✅ Created user: %s\n", user.Email)
	}
}

// SeedEvents generates upcoming events spread over the cities already in
// the catalogs, with ids continuing after the default ones.
func (s *Seeder) SeedEvents(n int) {
	fmt.Println("  🎪 Seeding events...")

	eventsData := []struct {
		name     string
		category string
		types    []string
		base     float64
	}{
		{"Noche de jazz", "Música", []string{"General", "Mesa"}, 70000},
		{"Feria del libro", "Cultura", []string{"Entrada"}, 15000},
		{"Maratón de la montaña", "Deporte", []string{"Corredor", "Acompañante"}, 120000},
		{"Taller de fotografía", "Conferencia", []string{"Cupo"}, 0},
		{"Rock en la plaza", "Música", []string{"General", "Preferencial", "VIP"}, 90000},
		{"Festival gastronómico", "Cultura", []string{"Degustación"}, 45000},
	}

	nextEventID := 1
	for _, ev := range s.fixtures.Events {
		if ev.ID >= nextEventID {
			nextEventID = ev.ID + 1
		}
	}

	for i := 0; i < n; i++ {
		data := eventsData[i%len(eventsData)]
		dept, city := s.pickCity()
		id := nextEventID + i

		start := s.now.AddDate(0, 0, 15+s.rng.Intn(180)).Truncate(time.Hour)
		event := events.Event{
			ID:          id,
			Name:        data.name,
			Description: fmt.Sprintf("%s en %s.", data.name, city),
			Status:      events.StatusActive,
			Start:       start.Format(time.RFC3339),
			End:         start.Add(time.Duration(3+s.rng.Intn(6)) * time.Hour).Format(time.RFC3339),
			City:        city,
			Department:  dept,
			Country:     "Colombia",
			Category:    data.category,
		}
		if i%5 == 4 {
			event.Status = events.StatusScheduled
		}

		for j, typeName := range data.types {
			capacity := 100 * (1 + s.rng.Intn(20))
			// Price tiers grow by half of the base per step.
			price := data.base * (1 + 0.5*float64(j))
			event.TicketTypes = append(event.TicketTypes, events.TicketType{
				ID:              id*10 + j + 1,
				Price:           api.Decimal(price),
				MaximumCapacity: capacity,
				CapacitySold:    s.rng.Intn(capacity / 2),
				Info:            events.TicketTypeInfo{Name: typeName},
			})
		}

		s.fixtures.Events = append(s.fixtures.Events, event)
		fmt.Printf("    ✅ Created event %d: %s (%s, %s)\n", event.ID, event.Name, city, start.Format("2006-01-02"))
	}
}

func (s *Seeder) pickCity() (string, string) {
	depts := s.fixtures.Departments
	dept := depts[s.rng.Intn(len(depts))]
	cities := s.fixtures.Cities[string(dept.ID)]
	if len(cities) == 0 {
		return dept.Name, dept.Name
	}
	return dept.Name, cities[s.rng.Intn(len(cities))].Name
}

func resetSnapshot(cfg *config.Config, host string) error {
	client, err := cache.Connect(cache.Config{
		Address:  cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cache.NewService(client).Delete(ctx, constants.BuildCatalogSnapshotKey(host))
}

// generateSlug lowercases name and keeps ASCII letters and digits.
func generateSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
