// seatline-agent is the device-side companion of the seatline API. It
// queues tickets issued while offline in a local SQLite file and uploads
// them in batches when the server is reachable.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"seatline/internal/offline"
	"seatline/internal/pricing"
	"seatline/pkg/logger"

	"github.com/spf13/pflag"
)

const usage = `Usage: seatline-agent [--config agent.yml] <command> [flags]

Commands:
  login    sign in and print an access token for SEATLINE_TOKEN
  issue    queue a ticket for upload
  list     show queued tickets
  sync     upload pending tickets once
  retry    move failed tickets back to pending
  status   show queue counts and the last sync result
  daemon   upload pending tickets periodically until interrupted
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type agent struct {
	cfg        offline.AgentConfig
	store      *offline.Store
	reconciler *offline.Reconciler
	client     *offline.HTTPClient
	log        *logger.Logger
}

func run(args []string) error {
	global := pflag.NewFlagSet("seatline-agent", pflag.ContinueOnError)
	global.SetInterspersed(false)
	configPath := global.StringP("config", "c", "agent.yml", "path to the agent YAML config")
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage, "\nGlobal flags:\n", global.FlagUsages())
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return pflag.ErrHelp
	}

	cfg, err := offline.LoadAgentConfig(*configPath)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)
	logger.SetDefault(log)

	store, err := offline.OpenStore(offline.StoreConfig{Path: cfg.Store.Path, Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()

	client := offline.NewHTTPClient(cfg.Server, cfg.DeviceID)
	a := &agent{
		cfg:    cfg,
		store:  store,
		client: client,
		log:    log,
		reconciler: offline.NewReconciler(store, client, offline.ReconcilerOptions{
			DeviceID:  cfg.DeviceID,
			BatchSize: cfg.Sync.BatchSize,
			Timeout:   cfg.Server.Timeout,
			Interval:  cfg.Sync.Interval,
			Logger:    log,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "login":
		return a.login(ctx, cmdArgs)
	case "issue":
		return a.issue(ctx, cmdArgs)
	case "list":
		return a.list(ctx, cmdArgs)
	case "sync":
		return a.sync(ctx)
	case "retry":
		return a.retry(ctx, cmdArgs)
	case "status":
		return a.status(ctx)
	case "daemon":
		a.log.InfoContext(ctx, "agent daemon started", "device_id", cfg.DeviceID, "interval", cfg.Sync.Interval)
		return a.reconciler.Run(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *agent) login(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.String("email", "", "employee email (required)")
	password := fs.String("password", "", "password; read from SEATLINE_PASSWORD when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("SEATLINE_PASSWORD")
	}
	if *email == "" || *password == "" {
		return errors.New("--email and a password are required")
	}
	tokens, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("export SEATLINE_TOKEN=%s\n", tokens.AccessToken)
	return nil
}

func (a *agent) issue(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("issue", pflag.ContinueOnError)
	trip := fs.Int64("trip", 0, "trip id (required)")
	vehicle := fs.Int64("vehicle", 0, "trip vehicle id")
	seat := fs.Int64("seat", 0, "seat id; requires --board and --exit")
	board := fs.Int64("board", 0, "board station id")
	exit := fs.Int64("exit", 0, "exit station id")
	priceList := fs.Int64("price-list", 0, "price list id")
	category := fs.Int64("category", 0, "pricing category id")
	discountType := fs.Int64("discount-type", 0, "discount type id")
	discountKind := fs.String("discount-kind", "", "percent or fixed; computes --final from --base")
	discountValue := fs.Float64("discount-value", 0, "discount value for --discount-kind")
	base := fs.Float64("base", 0, "list price")
	final := fs.Float64("final", 0, "price paid")
	currency := fs.String("currency", "RON", "ISO currency code")
	method := fs.String("method", "cash", "payment method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *trip <= 0 {
		return errors.New("--trip is required")
	}

	t := offline.Ticket{
		TripID:         *trip,
		TripVehicleID:  changedInt(fs, "vehicle", *vehicle),
		OperatorID:     positive(a.cfg.OperatorID),
		EmployeeID:     positive(a.cfg.EmployeeID),
		SeatID:         changedInt(fs, "seat", *seat),
		BoardStationID: changedInt(fs, "board", *board),
		ExitStationID:  changedInt(fs, "exit", *exit),
		PriceListID:    changedInt(fs, "price-list", *priceList),
		CategoryID:     changedInt(fs, "category", *category),
		DiscountTypeID: changedInt(fs, "discount-type", *discountType),
		Currency:       *currency,
		PaymentMethod:  *method,
	}
	if fs.Changed("base") {
		t.BasePrice = base
	}
	switch {
	case fs.Changed("final"):
		t.FinalPrice = final
	case *discountKind != "" && t.BasePrice != nil:
		kind := pricing.DiscountKind(*discountKind)
		if kind != pricing.DiscountPercent && kind != pricing.DiscountFixed {
			return fmt.Errorf("--discount-kind must be percent or fixed, got %q", *discountKind)
		}
		net := pricing.ApplyDiscount(*t.BasePrice, kind, *discountValue)
		t.FinalPrice = &net
	}

	id, err := a.store.Enqueue(ctx, &t)
	if err != nil {
		return err
	}
	fmt.Printf("queued ticket %d for trip %d\n", id, t.TripID)
	return nil
}

func (a *agent) list(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	state := fs.String("state", "", "pending, synced or failed (default all)")
	limit := fs.Int("limit", 50, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *state != "" && !offline.State(*state).Valid() {
		return fmt.Errorf("unknown state %q", *state)
	}

	rows, err := a.store.List(ctx, offline.State(*state), *limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCAL\tTRIP\tSEAT\tFINAL\tSTATE\tRESERVATION\tCREATED\tERROR")
	for _, t := range rows {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.LocalID, t.TripID, intOrDash(t.SeatID), priceOrDash(t.FinalPrice, t.Currency),
			t.State, intOrDash(t.RemoteReservationID), t.CreatedAt.Format(offline.CreatedAtLayout), t.LastError)
	}
	return w.Flush()
}

func (a *agent) sync(ctx context.Context) error {
	report, err := a.reconciler.SyncOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Println(report.String())
	return nil
}

func (a *agent) retry(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("retry", pflag.ContinueOnError)
	id := fs.Int64("id", 0, "local ticket id (default every failed ticket)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := a.store.Retry(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("%d ticket(s) moved back to pending\n", n)
	return nil
}

func (a *agent) status(ctx context.Context) error {
	counts, err := a.store.Counts(ctx)
	if err != nil {
		return err
	}
	st, err := a.store.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("device:       %s\n", a.cfg.DeviceID)
	fmt.Printf("pending:      %d\nsynced:       %d\nfailed:       %d\n", counts.Pending, counts.Synced, counts.Failed)
	fmt.Printf("last attempt: %s\n", timeOrNever(st.LastAttemptAt))
	fmt.Printf("last success: %s\n", timeOrNever(st.LastSuccessAt))
	if st.LastMessage != "" {
		fmt.Printf("last result:  %s\n", st.LastMessage)
	}
	return nil
}

func changedInt(fs *pflag.FlagSet, name string, v int64) *int64 {
	if !fs.Changed(name) {
		return nil
	}
	return positive(v)
}

func positive(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func intOrDash(p *int64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func priceOrDash(p *float64, currency string) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", *p, currency)
}

func timeOrNever(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
