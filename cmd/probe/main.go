// Command probe performs connectivity diagnostics against the external
// services the assessment pipeline depends on: the Gemini model API, the
// geocoding chain, and the environmental providers. Run it before deploying
// to verify the configured credentials actually work.
//
// Usage:
//
//	go run ./cmd/probe
//	go run ./cmd/probe -location "Austin, TX"
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pollenguard/allergy-risk/internal/adapter/gemini"
	"github.com/pollenguard/allergy-risk/internal/adapter/geocode"
	"github.com/pollenguard/allergy-risk/internal/adapter/nominatim"
	"github.com/pollenguard/allergy-risk/internal/adapter/openmeteo"
	"github.com/pollenguard/allergy-risk/internal/adapter/openweather"
	"github.com/pollenguard/allergy-risk/internal/config"
	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
)

// check tracks pass/fail plus informational notes for one probe phase.
type check struct {
	name   string
	errors []string
	notes  []string
}

func (c *check) errorf(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *check) notef(format string, args ...any) {
	c.notes = append(c.notes, fmt.Sprintf(format, args...))
}

func (c *check) passed() bool { return len(c.errors) == 0 }

func main() {
	location := flag.String("location", "Berlin", "place name for the provider checks")
	timeout := flag.Duration("timeout", 60*time.Second, "overall probe timeout")
	flag.Parse()

	if code := run(*location, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(location string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// The report below is the output; adapter logs would drown it.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()

	fmt.Println("=== Allergy Risk Connectivity Probe ===")
	fmt.Println()

	cfg, cfgCheck := checkConfig()
	checks := []*check{cfgCheck}

	if cfg != nil {
		model := gemini.NewClient(cfg.GeminiAPIKey, cfg.ModelTimeout, logger)
		resolver := gemini.NewResolver(model, metrics, logger)

		checks = append(checks,
			checkModelListing(ctx, model),
			checkGeneration(ctx, model, resolver),
			checkProviders(ctx, cfg, location, logger),
		)
	}

	allPassed := true
	for _, c := range checks {
		status := "\033[32mPASS\033[0m"
		if !c.passed() {
			status = "\033[31mFAIL\033[0m"
			allPassed = false
		}
		fmt.Printf("  %-32s %s\n", c.name, status)
		for _, n := range c.notes {
			fmt.Printf("      %s\n", n)
		}
		for _, e := range c.errors {
			fmt.Printf("      error: %s\n", e)
		}
	}

	fmt.Println()
	if allPassed {
		fmt.Println("All probes passed.")
		return 0
	}
	fmt.Println("Probe FAILED.")
	return 1
}

func checkConfig() (*config.Config, *check) {
	c := &check{name: "Configuration"}

	cfg, err := config.Load()
	if err != nil {
		wd, _ := os.Getwd()
		c.errorf("%v", err)
		c.notef("looked for a .env file in %s", wd)
		return nil, c
	}

	c.notef("gemini key %s", maskKey(cfg.GeminiAPIKey))
	if cfg.OpenWeatherAPIKey == "" {
		c.notef("openweather key absent, keyed provider disabled")
	} else {
		c.notef("openweather key %s", maskKey(cfg.OpenWeatherAPIKey))
	}
	if cfg.PersistenceEnabled {
		c.notef("persistence at %s", cfg.DatabasePath)
	}
	if cfg.KafkaEnabled {
		c.notef("kafka brokers %s", strings.Join(cfg.KafkaBrokers, ","))
	}
	return cfg, c
}

func checkModelListing(ctx context.Context, model *gemini.Client) *check {
	c := &check{name: "Model listing"}

	models, err := model.ListModels(ctx)
	if err != nil {
		c.errorf("list models: %v", err)
		return c
	}

	flash := 0
	for _, m := range models {
		if strings.Contains(m.Name, "flash") && m.SupportsGeneration() {
			flash++
		}
	}
	c.notef("%d models listed, %d flash generation candidates", len(models), flash)
	if flash == 0 {
		c.notef("no flash candidate; the service will use %s", gemini.FallbackEndpoint)
	}
	return c
}

func checkGeneration(ctx context.Context, model *gemini.Client, resolver *gemini.Resolver) *check {
	c := &check{name: "Text generation"}

	endpoint := resolver.Resolve(ctx)
	c.notef("endpoint %s", endpoint)

	reply, err := model.GenerateText(ctx, endpoint, "Reply with the single word: ready")
	if err != nil {
		c.errorf("generate: %v", err)
		c.notef("the API key may be invalid, or the model may not be enabled for it")
		return c
	}
	if len(reply) > 60 {
		reply = reply[:60] + "..."
	}
	c.notef("model replied: %q", reply)
	return c
}

func checkProviders(ctx context.Context, cfg *config.Config, location string, logger *slog.Logger) *check {
	c := &check{name: "Environmental providers"}

	var providers []domain.Geocoder
	if cfg.OpenWeatherAPIKey != "" {
		providers = append(providers, openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.ProviderTimeout, logger))
	}
	providers = append(providers, nominatim.NewClient(cfg.ProviderTimeout, logger))

	geo, err := geocode.NewChain(logger, providers...).Resolve(ctx, location)
	if err != nil {
		c.errorf("geocode %q: %v", location, err)
		return c
	}
	c.notef("%q resolved to (%.4f, %.4f)", location, geo.Lat, geo.Lon)

	reading, err := openmeteo.NewClient(cfg.ProviderTimeout, logger).CurrentAirQuality(ctx, geo)
	if err != nil {
		c.errorf("air quality: %v", err)
		return c
	}
	c.notef("us aqi %.0f, pm2.5 %.1f, grass pollen %.1f", reading.USAQI, reading.PM25, reading.Pollen.Grass)
	return c
}

func maskKey(key string) string {
	if len(key) < 10 {
		return "(set)"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
