package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/sgweather/internal/api"
	"github.com/lox/sgweather/internal/forecast"
	"github.com/lox/sgweather/internal/geocode"
	"github.com/lox/sgweather/internal/ingest"
	"github.com/lox/sgweather/internal/models"
	"github.com/lox/sgweather/internal/render"
	"github.com/lox/sgweather/internal/store"
)

// CLI holds the global flags shared by every command.
type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`

	DB       string `help:"Path to SQLite database." default:"data/sgweather.db" env:"SGWEATHER_DB"`
	Timezone string `help:"Timezone for displayed times." default:"Asia/Singapore" env:"SGWEATHER_TZ"`

	TwoHourURL        string `help:"Override the 2-hour forecast endpoint." env:"SGWEATHER_TWO_HOUR_URL"`
	TwentyFourHourURL string `help:"Override the 24-hour forecast endpoint." env:"SGWEATHER_TWENTY_FOUR_HOUR_URL"`
	FourDayURL        string `help:"Override the 4-day outlook endpoint." env:"SGWEATHER_FOUR_DAY_URL"`
	PSIURL            string `name:"psi-url" help:"Override the PSI endpoint." env:"SGWEATHER_PSI_URL"`
	PM25URL           string `name:"pm25-url" help:"Override the PM2.5 endpoint." env:"SGWEATHER_PM25_URL"`
	OneMapURL         string `name:"onemap-url" help:"Override the OneMap address search endpoint." env:"SGWEATHER_ONEMAP_URL"`
	NominatimURL      string `help:"Override the Nominatim search endpoint." env:"SGWEATHER_NOMINATIM_URL"`

	RateLimit float64 `help:"Max upstream requests per second (0 disables)." default:"0" env:"SGWEATHER_RATE_LIMIT"`
	RateBurst int     `help:"Upstream request burst." default:"3" env:"SGWEATHER_RATE_BURST"`
	NoArchive bool    `help:"Do not record upstream fetches in the database." env:"SGWEATHER_NO_ARCHIVE"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the dashboard server (default)."`
	Fetch   FetchCmd   `cmd:"" help:"Fetch one feed and print it as text."`
	Nearest NearestCmd `cmd:"" help:"Show the forecast for the area nearest to a position or address."`
	Stats   StatsCmd   `cmd:"" help:"Show ingest health and archive statistics."`
	Replay  ReplayCmd  `cmd:"" help:"Render an archived payload as text."`
}

func (c *CLI) location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Warning: could not load %s timezone, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func (c *CLI) endpoints() ingest.Endpoints {
	e := ingest.DefaultEndpoints()
	if c.TwoHourURL != "" {
		e.TwoHour = c.TwoHourURL
	}
	if c.TwentyFourHourURL != "" {
		e.TwentyFourHour = c.TwentyFourHourURL
	}
	if c.FourDayURL != "" {
		e.FourDay = c.FourDayURL
	}
	if c.PSIURL != "" {
		e.PSI = c.PSIURL
	}
	if c.PM25URL != "" {
		e.PM25 = c.PM25URL
	}
	return e
}

func (c *CLI) geocoder() *geocode.Client {
	e := geocode.DefaultEndpoints()
	if c.OneMapURL != "" {
		e.OneMap = c.OneMapURL
	}
	if c.NominatimURL != "" {
		e.Nominatim = c.NominatimURL
	}
	return geocode.NewClient(nil, e)
}

// openStore opens and migrates the database.
func (c *CLI) openStore(loc *time.Location) (*store.Store, *sql.DB, error) {
	db, err := store.Open(c.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db, nil
}

// gateway builds the upstream client, archiving into st when it is set.
func (c *CLI) gateway(st *store.Store) *ingest.Gateway {
	g := ingest.NewGateway(nil, c.endpoints())
	if c.RateLimit > 0 {
		g.SetRateLimit(c.RateLimit, c.RateBurst)
	}
	if st != nil && !c.NoArchive {
		g.SetArchive(st)
	}
	return g
}

type ServeCmd struct {
	Port            string        `help:"HTTP server port." default:"8080" env:"PORT"`
	ImageDir        string        `help:"Directory for generated banner images." default:"data/images" env:"SGWEATHER_IMAGE_DIR"`
	OpenAIKey       string        `help:"OpenAI API key for banner images." env:"OPENAI_API_KEY"`
	ArchiveInterval time.Duration `help:"Poll every horizon on this interval for the archive (0 disables)." default:"0s" env:"SGWEATHER_ARCHIVE_INTERVAL"`
	RetentionDays   int           `help:"Delete archived payloads older than this many days (0 keeps all)." default:"30" env:"SGWEATHER_RETENTION_DAYS"`
	SessionIdle     time.Duration `help:"Drop dashboard sessions idle for this long." default:"30m" env:"SGWEATHER_SESSION_IDLE"`
}

func (cmd *ServeCmd) Run(cli *CLI) error {
	loc := cli.location()
	st, db, err := cli.openStore(loc)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Println("database migrated")

	gateway := cli.gateway(st)
	server := api.NewServer(st, gateway, cmd.Port, loc, api.Options{
		ImageDir:    cmd.ImageDir,
		OpenAIKey:   cmd.OpenAIKey,
		SessionIdle: cmd.SessionIdle,
		Geocoder:    cli.geocoder(),
		Air:         gateway,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cmd.ArchiveInterval > 0 {
		scheduler := ingest.NewScheduler(gateway, cmd.ArchiveInterval)
		scheduler.SetRetention(st, cmd.RetentionDays)
		go scheduler.Run(ctx)
	} else {
		log.Println("archive polling disabled (--archive-interval=0)")
	}

	log.Printf("starting server on :%s", cmd.Port)
	return server.Run(ctx)
}

type FetchCmd struct {
	Horizon string `arg:"" optional:"" enum:"2hr,24hr,4day,psi,pm25" default:"2hr" help:"Feed: 2hr, 24hr, 4day, psi or pm25."`
	JSON    bool   `help:"Print the normalized JSON instead of text."`
}

func (cmd *FetchCmd) Run(cli *CLI) error {
	h, _ := models.ParseFeed(cmd.Horizon)
	loc := cli.location()

	var st *store.Store
	if !cli.NoArchive {
		s, db, err := cli.openStore(loc)
		if err != nil {
			return err
		}
		defer db.Close()
		st = s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := cli.gateway(st).Fetch(ctx, h)
	if err != nil {
		return err
	}
	return printResult(render.New(loc), data, cmd.JSON)
}

type NearestCmd struct {
	Lat     float64 `help:"Latitude."`
	Lon     float64 `help:"Longitude."`
	Address string  `help:"Street address or postal code, instead of --lat/--lon."`
}

func (cmd *NearestCmd) Validate() error {
	if cmd.Address == "" && cmd.Lat == 0 && cmd.Lon == 0 {
		return fmt.Errorf("either --address or --lat and --lon are required")
	}
	return nil
}

func (cmd *NearestCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lat, lon := cmd.Lat, cmd.Lon
	if cmd.Address != "" {
		res, err := cli.geocoder().Geocode(ctx, cmd.Address)
		if err != nil {
			return fmt.Errorf("geocode %q: %w", cmd.Address, err)
		}
		lat, lon = res.Lat, res.Lon
		fmt.Printf("Address: %s (%.5f, %.5f via %s)\n", res.Address, lat, lon, res.Source)
	}

	g := cli.gateway(nil)
	points, err := g.FetchTwoHour(ctx)
	if err != nil {
		return err
	}
	day, err := g.FetchTwentyFourHour(ctx)
	if err != nil {
		log.Printf("nearest: 24-hour forecast unavailable: %v", err)
	}

	loc, ok := forecast.Lookup(points, day, lat, lon)
	if !ok {
		return fmt.Errorf("no forecast areas available")
	}
	fmt.Printf("Nearest area: %s (%.1f km)\n", loc.Area, loc.DistanceKM)
	fmt.Printf("Next 2 hours: %s %s\n", loc.Emoji, loc.Forecast)
	fmt.Printf("Region: %s\n", loc.Region)
	for _, p := range loc.Periods {
		fmt.Printf("  %s: %s %s\n", p.Label, forecast.Emoji(p.Forecast), p.Forecast)
	}

	for _, feed := range models.AirFeeds {
		q, err := g.FetchAirQuality(ctx, feed)
		if err != nil {
			log.Printf("nearest: %s unavailable: %v", feed, err)
			continue
		}
		if reading, ok := forecast.AirFor(q, lat, lon); ok {
			fmt.Printf("%s: %s\n", feed.Label(), render.AirLine(reading))
		}
	}
	return nil
}

type StatsCmd struct {
	Days   int `help:"Days of ingest history to summarise." default:"7"`
	Errors int `help:"Number of recent errors to show." default:"10"`
}

func (cmd *StatsCmd) Run(cli *CLI) error {
	st, db, err := cli.openStore(cli.location())
	if err != nil {
		return err
	}
	defer db.Close()

	health, err := st.GetIngestHealth(cmd.Days)
	if err != nil {
		return fmt.Errorf("ingest health: %w", err)
	}
	fmt.Println("Ingest health:")
	if len(health) == 0 {
		fmt.Println("  no fetches recorded")
	}
	for _, h := range health {
		fmt.Printf("  %s %-5s runs=%d ok=%d failed=%d records=%d flagged=%d\n",
			h.Date, h.Horizon, h.TotalRuns, h.SuccessRuns, h.FailedRuns, h.TotalRecords, h.FlaggedRuns)
	}

	runs, err := st.GetRecentIngestErrors(cmd.Errors)
	if err != nil {
		return fmt.Errorf("recent errors: %w", err)
	}
	if len(runs) > 0 {
		fmt.Println("\nRecent errors:")
		for _, r := range runs {
			fmt.Printf("  %s %-5s %s\n", r.StartedAt.Format(time.RFC3339), r.Horizon, r.ErrorMessage.String)
		}
	}

	stats, err := st.GetRawPayloadStats()
	if err != nil {
		return fmt.Errorf("payload stats: %w", err)
	}
	fmt.Printf("\nArchive: %d payloads, %d bytes compressed\n", stats.TotalCount, stats.TotalSizeBytes)
	for _, h := range models.Feeds {
		if n := stats.CountByHorizon[string(h)]; n > 0 {
			fmt.Printf("  %-5s %d payloads, %d bytes\n", h, n, stats.SizeByHorizon[string(h)])
		}
	}
	if stats.TotalCount > 0 {
		fmt.Printf("  oldest %s, newest %s\n", stats.OldestFetchedAt.Format(time.RFC3339), stats.NewestFetchedAt.Format(time.RFC3339))
	}
	return nil
}

type ReplayCmd struct {
	Horizon string `arg:"" enum:"2hr,24hr,4day,psi,pm25" help:"Feed: 2hr, 24hr, 4day, psi or pm25."`
	ID      int64  `help:"Archived payload id (default: latest for the horizon)."`
	JSON    bool   `help:"Print the normalized JSON instead of text."`
}

func (cmd *ReplayCmd) Run(cli *CLI) error {
	h, _ := models.ParseFeed(cmd.Horizon)
	loc := cli.location()
	st, db, err := cli.openStore(loc)
	if err != nil {
		return err
	}
	defer db.Close()

	var raw []byte
	if cmd.ID > 0 {
		if raw, err = st.GetRawPayload(cmd.ID); err != nil {
			return fmt.Errorf("payload %d: %w", cmd.ID, err)
		}
	} else {
		p, err := st.LatestRawPayload(h)
		if err != nil {
			return fmt.Errorf("latest %s payload: %w", h, err)
		}
		if p == nil {
			return fmt.Errorf("no archived %s payloads", h)
		}
		if raw, err = p.Payload(); err != nil {
			return err
		}
		log.Printf("replaying payload %d fetched %s", p.ID, p.FetchedAt.In(loc).Format(time.RFC3339))
	}

	data, err := ingest.Normalize(h, raw)
	if err != nil {
		return err
	}
	return printResult(render.New(loc), data, cmd.JSON)
}

func printResult(r *render.Renderer, data any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text, err := r.PlainText(data)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sgweather"),
		kong.Description("Singapore weather dashboard."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
