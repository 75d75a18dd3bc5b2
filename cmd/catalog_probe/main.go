package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"tiquetera/internal/api"
	"tiquetera/internal/catalogs"
	"tiquetera/internal/session"
	"tiquetera/internal/shared/config"
	"tiquetera/pkg/cache"
	"tiquetera/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

type ProbeResult struct {
	Catalog      string        `json:"catalog"`
	CacheStatus  string        `json:"cache_status"`
	ResponseTime time.Duration `json:"response_time"`
	Entries      int           `json:"entries"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

type ProbeSuite struct {
	cache   *catalogs.Cache
	Results []ProbeResult
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var (
		baseURL    string
		department string
		snapshot   bool
		report     string
	)
	pflag.StringVar(&baseURL, "base-url", cfg.API.BaseURL, "backend API base URL")
	pflag.StringVar(&department, "department", "5", "department whose cities are probed")
	pflag.BoolVar(&snapshot, "snapshot", cfg.Catalog.Snapshot, "also check the Redis snapshot round trip")
	pflag.StringVar(&report, "report", "", "write the detailed results as JSON to this file")
	pflag.Parse()

	cfg.API.BaseURL = baseURL
	appLogger := logger.New()

	fmt.Println("🧪 Starting catalog cache probe...")
	fmt.Println("===================================")

	client := api.NewClient(cfg.API, session.NewMemoryStore(), api.WithLogger(appLogger))
	fetcher := catalogs.NewBackendFetcher(client, cfg.API.CatalogTimeout)

	var store *catalogs.RedisSnapshotStore
	if snapshot {
		redisClient, err := cache.Connect(cache.Config{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("❌ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		fmt.Println("✅ Redis connection: OK")
		store = catalogs.NewRedisSnapshotStore(cache.NewService(redisClient), hostOf(baseURL))
	}

	opts := []catalogs.Option{catalogs.WithLogger(appLogger)}
	if store != nil {
		opts = append(opts, catalogs.WithSnapshotStore(store))
	}
	suite := &ProbeSuite{cache: catalogs.NewCache(fetcher, cfg.Catalog.TTL, opts...)}

	ctx := context.Background()
	probes := []struct {
		name  string
		fetch func(ctx context.Context, useCache bool) ([]catalogs.Entry, error)
	}{
		{"departments", suite.cache.FetchDepartments},
		{"cities:" + department, func(ctx context.Context, useCache bool) ([]catalogs.Entry, error) {
			return suite.cache.FetchCitiesByDepartment(ctx, department, useCache)
		}},
		{"document_types", func(ctx context.Context, useCache bool) ([]catalogs.Entry, error) {
			return suite.cache.FetchDocumentTypes(ctx, useCache), nil
		}},
	}

	for _, p := range probes {
		fmt.Printf("\n🔍 Probing: %s\n", p.name)

		miss := suite.probe(ctx, p.name, "MISS", false, p.fetch)
		hit := suite.probe(ctx, p.name, "HIT", true, p.fetch)
		if miss.Success && hit.Success && miss.ResponseTime > 0 {
			improvement := float64(miss.ResponseTime-hit.ResponseTime) / float64(miss.ResponseTime) * 100
			fmt.Printf("   📈 Cache improvement: %.1f%% (%v -> %v)\n",
				improvement, miss.ResponseTime, hit.ResponseTime)
		}
	}

	if store != nil {
		suite.checkSnapshot(ctx, fetcher, cfg.Catalog.TTL, store)
	}

	suite.generateReport(report)
	fmt.Println("\n🎉 Catalog probe complete!")
}

func (s *ProbeSuite) probe(ctx context.Context, name, status string, useCache bool,
	fetch func(context.Context, bool) ([]catalogs.Entry, error)) ProbeResult {
	start := time.Now()
	entries, err := fetch(ctx, useCache)
	result := ProbeResult{
		Catalog:      name,
		CacheStatus:  status,
		ResponseTime: time.Since(start),
		Entries:      len(entries),
		Success:      err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	}
	s.Results = append(s.Results, result)

	statusIcon := "✅"
	if !result.Success {
		statusIcon = "❌"
	}
	cacheIcon := "🔥"
	if status == "MISS" {
		cacheIcon = "💾"
	}
	fmt.Printf("   %s %s [%s] %v (%d entries)\n", statusIcon, cacheIcon, status, result.ResponseTime, result.Entries)
	if err != nil {
		fmt.Printf("      %s\n", err)
	}
	return result
}

// checkSnapshot saves through the first cache and restores into a fresh one.
func (s *ProbeSuite) checkSnapshot(ctx context.Context, fetcher catalogs.Fetcher, ttl time.Duration, store catalogs.SnapshotStore) {
	fmt.Println("\n🔍 Probing: redis snapshot")
	fresh := catalogs.NewCache(fetcher, ttl, catalogs.WithSnapshotStore(store))

	start := time.Now()
	ok, err := fresh.Restore(ctx)
	result := ProbeResult{
		Catalog:      "snapshot",
		CacheStatus:  "RESTORE",
		ResponseTime: time.Since(start),
		Entries:      len(fresh.CachedDepartments()),
		Success:      err == nil && ok,
	}
	switch {
	case err != nil:
		result.Error = err.Error()
	case !ok:
		result.Error = "no snapshot stored"
	}
	s.Results = append(s.Results, result)

	if result.Success {
		fmt.Printf("   ✅ Restored %d departments in %v\n", result.Entries, result.ResponseTime)
	} else {
		fmt.Printf("   ❌ Snapshot restore failed: %s\n", result.Error)
	}
}

func (s *ProbeSuite) generateReport(path string) {
	fmt.Println("\n📊 CATALOG CACHE REPORT")
	fmt.Println("=======================")

	var (
		successful        int
		hits, misses      int
		hitTime, missTime time.Duration
	)
	for _, r := range s.Results {
		if r.Success {
			successful++
		}
		switch r.CacheStatus {
		case "HIT":
			hits++
			hitTime += r.ResponseTime
		case "MISS":
			misses++
			missTime += r.ResponseTime
		}
	}

	total := len(s.Results)
	fmt.Printf("Total Probes: %d\n", total)
	if total > 0 {
		fmt.Printf("Successful: %d (%.1f%%)\n", successful, float64(successful)/float64(total)*100)
	}
	if hits > 0 {
		fmt.Printf("Average Cache Hit Time: %v\n", hitTime/time.Duration(hits))
	}
	if misses > 0 {
		fmt.Printf("Average Backend Fetch Time: %v\n", missTime/time.Duration(misses))
	}

	if path == "" {
		return
	}
	data, err := json.MarshalIndent(map[string]interface{}{
		"summary": map[string]interface{}{
			"total_probes":      total,
			"successful_probes": successful,
			"cache_hits":        hits,
			"cache_misses":      misses,
		},
		"results": s.Results,
	}, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		log.Printf("Warning: Failed to write report: %v", err)
		return
	}
	fmt.Printf("\n💾 Detailed results saved to %s\n", path)
}

func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
