// parkctl is the Gridee parking client: sign in, find a spot, book
// it, scan the gate code, keep the wallet topped up.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gridee/internal/apiclient"
	"gridee/internal/booking"
	"gridee/internal/config"
	"gridee/internal/credstore"
	"gridee/internal/export"
	"gridee/internal/googleauth"
	"gridee/internal/history"
	"gridee/internal/logging"
	"gridee/internal/metrics"
	"gridee/internal/models"
	"gridee/internal/notify"
	"gridee/internal/payment"
	"gridee/internal/qrscan"
	"gridee/internal/session"
	"gridee/internal/wallet"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

const usage = `Usage: parkctl <command> [flags]

Commands:
  login         sign in with email and password
  google-login  sign in with a Google account
  register      create an account
  otp           request and verify a one-time code
  logout        sign out and clear stored credentials
  whoami        show the active session
  lots          list parking lots
  spots         list available spots in a lot
  book          reserve a spot
  bookings      list current bookings
  history       show booking history (cached locally)
  cancel        cancel a booking
  extend        push a booking's end time
  scan          process a gate QR code
  vehicles      manage registered vehicles
  wallet        show wallet balance
  topup         add money to the wallet
  transactions  show the wallet ledger
  export        write booking history to an Excel file
`

// app bundles everything a subcommand can reach.
type app struct {
	cfg      *config.Config
	logger   *zerolog.Logger
	client   *apiclient.Client
	sessions *session.Manager
	bookings *booking.Service
	wallets  *wallet.Service
	scanner  *qrscan.Orchestrator
	payments *payment.Orchestrator
	notifier *notify.Notifier
	stdin    *bufio.Reader
}

func run() error {
	args := os.Args[1:]
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Print(usage)
		return nil
	}

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go serveMetrics(cfg.Monitoring.PrometheusPort, logger)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	client := apiclient.New(cfg.Backend, logger)
	sessions := session.NewManager(client, store, logger)
	if err := sessions.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not restore session, continuing signed out")
	}

	notifier, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return err
	}

	bookings := booking.NewService(client, logger)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		sessions: sessions,
		bookings: bookings,
		wallets:  wallet.NewService(client, logger),
		scanner:  qrscan.NewOrchestrator(bookings, bookings, logger),
		payments: payment.NewOrchestrator(client, &promptGateway{in: bufio.NewReader(os.Stdin), keyID: cfg.Payment.RazorpayKeyID},
			cfg.Payment.Currency, cfg.Payment.MerchantName, logger),
		notifier: notifier,
		stdin:    bufio.NewReader(os.Stdin),
	}

	return a.dispatch(ctx, args[0], args[1:])
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := baseLogger.With().Str("component", "parkctl").Logger()
	return cfg, &logger, closer, nil
}

func buildStore(cfg *config.Config, logger *zerolog.Logger) (credstore.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return credstore.NewRedisStore(credstore.NewRedisClient(cfg.Store.Redis)), nil
	case "failover":
		primary := credstore.NewRedisStore(credstore.NewRedisClient(cfg.Store.Redis))
		fallback, err := credstore.NewFileStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return credstore.NewFailoverStore(primary, fallback, logger), nil
	default:
		return credstore.NewFileStore(cfg.Store.Path)
	}
}

func serveMetrics(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics listener stopped")
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "google-login":
		return a.cmdGoogleLogin(ctx)
	case "register":
		return a.cmdRegister(ctx, args)
	case "otp":
		return a.cmdOTP(ctx, args)
	case "logout":
		return a.sessions.Logout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "lots":
		return a.cmdLots(ctx)
	case "spots":
		return a.cmdSpots(ctx, args)
	case "book":
		return a.cmdBook(ctx, args)
	case "bookings":
		return a.cmdBookings(ctx)
	case "history":
		return a.cmdHistory(ctx)
	case "cancel":
		return a.cmdCancel(ctx, args)
	case "extend":
		return a.cmdExtend(ctx, args)
	case "scan":
		return a.cmdScan(ctx, args)
	case "vehicles":
		return a.cmdVehicles(ctx, args)
	case "wallet":
		return a.cmdWallet(ctx)
	case "topup":
		return a.cmdTopUp(ctx, args)
	case "transactions":
		return a.cmdTransactions(ctx)
	case "export":
		return a.cmdExport(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) requireSession() (string, error) {
	current, ok := a.sessions.Current()
	if !ok {
		return "", fmt.Errorf("not signed in, run `parkctl login` first")
	}
	return current.UserID, nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := a.stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email or phone")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.prompt("Password: "); err != nil {
			return err
		}
	}

	sess, err := a.sessions.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", sess.Name, sess.Role)
	return nil
}

func (a *app) cmdGoogleLogin(ctx context.Context) error {
	flow, err := googleauth.NewFlow(a.cfg.Google)
	if err != nil {
		return err
	}

	state := fmt.Sprintf("parkctl-%d", time.Now().UnixNano())
	fmt.Println("Open this URL in a browser and approve access:")
	fmt.Println("  " + flow.AuthURL(state))

	code, err := a.prompt("Paste the authorization code: ")
	if err != nil {
		return err
	}
	tokens, err := flow.ExchangeAndVerify(ctx, code)
	if err != nil {
		return err
	}

	sess, err := a.sessions.LoginWithGoogle(ctx, tokens.IDToken, tokens.AccessToken)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s)\n", sess.Name, sess.Role)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password")
	lot := fs.String("lot", "", "home parking lot name (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.sessions.Register(ctx, session.RegisterRequest{
		Name: *name, Email: *email, Phone: *phone, Password: *password, ParkingLotName: *lot,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Account created, signed in as %s\n", sess.Name)
	return nil
}

func (a *app) cmdOTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("otp", flag.ContinueOnError)
	key := fs.String("key", "", "phone or email receiving the code")
	code := fs.String("code", "", "code to verify; omit to request a new one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *code == "" {
		if _, err := a.sessions.GenerateOTP(ctx, *key); err != nil {
			return err
		}
		fmt.Println("Code sent.")
		return nil
	}

	ok, err := a.sessions.ValidateOTP(ctx, *key, *code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("code rejected")
	}
	fmt.Println("Code accepted.")
	return nil
}

func (a *app) cmdWhoami() error {
	current, ok := a.sessions.Current()
	if !ok {
		fmt.Println("Signed out.")
		return nil
	}
	fmt.Printf("%s <%s> role=%s lot=%s vehicles=%s\n",
		current.Name, current.Email, current.Role, current.ParkingLotName,
		strings.Join(current.VehicleNumbers, ","))
	return nil
}

func (a *app) cmdLots(ctx context.Context) error {
	lots, err := a.bookings.Lots(ctx)
	if err != nil {
		return err
	}
	for _, lot := range lots {
		fmt.Printf("%-24s %s\n", lot.ID, lot.Name)
	}
	return nil
}

func (a *app) cmdSpots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spots", flag.ContinueOnError)
	lot := fs.String("lot", "", "parking lot id")
	from := fs.String("from", "", "window start (RFC 3339, default now)")
	hours := fs.Int("hours", 1, "window length in hours")
	if err := fs.Parse(args); err != nil {
		return err
	}

	start := time.Now()
	if *from != "" {
		var err error
		if start, err = time.Parse(time.RFC3339, *from); err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
	}

	spots, err := a.bookings.AvailableSpots(ctx, *lot, start, start.Add(time.Duration(*hours)*time.Hour))
	if err != nil {
		return err
	}
	for _, spot := range spots {
		fmt.Printf("%-24s zone=%-8s free=%d/%d rate=%.2f/h\n",
			spot.ID, spot.ZoneName, spot.Available, spot.Capacity, spot.BookingRate)
	}
	return nil
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	lot := fs.String("lot", "", "parking lot id")
	spot := fs.String("spot", "", "spot id")
	from := fs.String("from", "", "start time (RFC 3339, default now)")
	hours := fs.Int("hours", 1, "booking length in hours")
	vehicle := fs.String("vehicle", "", "vehicle number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID, err := a.requireSession()
	if err != nil {
		return err
	}

	start := time.Now()
	if *from != "" {
		if start, err = time.Parse(time.RFC3339, *from); err != nil {
			return fmt.Errorf("invalid -from: %w", err)
		}
	}

	created, err := a.bookings.Create(ctx, booking.CreateRequest{
		UserID:        userID,
		LotID:         *lot,
		SpotID:        *spot,
		StartTime:     start,
		EndTime:       start.Add(time.Duration(*hours) * time.Hour),
		VehicleNumber: *vehicle,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Booked %s, status %s, amount %.2f\n", created.ID, created.Status, created.Amount)
	return nil
}

func (a *app) cmdBookings(ctx context.Context) error {
	userID, err := a.requireSession()
	if err != nil {
		return err
	}
	list, err := a.bookings.List(ctx, userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No bookings.")
		return nil
	}
	for _, b := range list {
		fmt.Printf("%-24s %-10s lot=%s spot=%s amount=%.2f\n",
			b.ID, b.Status, b.LotID, b.SpotID, b.Amount)
	}
	return nil
}

// cmdHistory serves from the local cache and refreshes it from the
// backend when reachable, so past sessions stay visible offline.
func (a *app) cmdHistory(ctx context.Context) error {
	userID, err := a.requireSession()
	if err != nil {
		return err
	}

	cache, err := history.Open(a.cfg.Store.Path+".history.db", a.logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	if fresh, err := a.bookings.History(ctx, userID); err != nil {
		a.logger.Warn().Err(err).Msg("history refresh failed, showing cached copy")
	} else if err := cache.Replace(ctx, userID, fresh); err != nil {
		a.logger.Warn().Err(err).Msg("could not update history cache")
	}

	cached, err := cache.List(ctx, userID)
	if err != nil {
		return err
	}
	for _, b := range cached {
		fmt.Printf("%-24s %-10s %s -> %s amount=%.2f\n",
			b.ID, b.Status, b.CheckInTime, b.CheckOutTime, b.Amount)
	}
	return nil
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: parkctl cancel <booking-id>")
	}
	userID, err := a.requireSession()
	if err != nil {
		return err
	}
	cancelled, err := a.bookings.Cancel(ctx, userID, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Booking %s is now %s\n", cancelled.ID, cancelled.Status)
	return nil
}

func (a *app) cmdExtend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("extend", flag.ContinueOnError)
	id := fs.String("id", "", "booking id")
	until := fs.String("until", "", "new end time (RFC 3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	end, err := time.Parse(time.RFC3339, *until)
	if err != nil {
		return fmt.Errorf("invalid -until: %w", err)
	}
	userID, err := a.requireSession()
	if err != nil {
		return err
	}
	extended, err := a.bookings.Extend(ctx, userID, *id, end)
	if err != nil {
		return err
	}
	fmt.Printf("Booking %s extended to %s\n", extended.ID, extended.CheckOutTime)
	return nil
}

func (a *app) cmdScan(ctx context.Context, args []string) error {
	userID, err := a.requireSession()
	if err != nil {
		return err
	}

	raw := ""
	if len(args) == 1 {
		raw = args[0]
	} else if raw, err = a.prompt("QR payload: "); err != nil {
		return err
	}

	result, err := a.scanner.HandleScan(ctx, userID, raw)
	if err != nil {
		a.notifier.GateRefused(models.Booking{}, err.Error())
		return err
	}
	a.notifier.GatePassed(result.Booking, string(result.Action))
	fmt.Printf("%s accepted: booking %s is now %s\n", result.Action, result.Booking.ID, result.Booking.Status)
	return nil
}

func (a *app) cmdVehicles(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vehicles", flag.ContinueOnError)
	add := fs.String("add", "", "plate number to register on the backend")
	remove := fs.String("remove", "", "plate number to drop locally")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.requireSession(); err != nil {
		return err
	}

	switch {
	case *add != "":
		if err := a.sessions.AddVehiclesSynced(ctx, []string{*add}); err != nil {
			return err
		}
	case *remove != "":
		if err := a.sessions.RemoveVehicle(ctx, *remove); err != nil {
			return err
		}
	}

	current, _ := a.sessions.Current()
	fmt.Println("Vehicles: " + strings.Join(current.VehicleNumbers, ", "))
	return nil
}

func (a *app) cmdWallet(ctx context.Context) error {
	userID, err := a.requireSession()
	if err != nil {
		return err
	}
	w, err := a.wallets.Fetch(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("Balance: %.2f %s\n", w.Balance, a.cfg.Payment.Currency)
	return nil
}

func (a *app) cmdTopUp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("topup", flag.ContinueOnError)
	amount := fs.Float64("amount", 0, "amount to add, in rupees")
	if err := fs.Parse(args); err != nil {
		return err
	}

	userID, err := a.requireSession()
	if err != nil {
		return err
	}
	if err := wallet.ValidateTopUp(*amount); err != nil {
		return err
	}

	current, _ := a.sessions.Current()
	req := payment.TopUpRequest{
		UserID: userID,
		Amount: *amount,
		Email:  current.Email,
		Phone:  current.Phone,
	}
	if err := a.payments.TopUp(ctx, req); err != nil {
		a.notifier.PaymentFailed(userID, "", *amount, err.Error())
		return err
	}

	w, err := a.wallets.Fetch(ctx, userID)
	if err != nil {
		return fmt.Errorf("top-up settled but balance fetch failed: %w", err)
	}
	fmt.Printf("New balance: %.2f %s\n", w.Balance, a.cfg.Payment.Currency)
	return nil
}

// cmdTransactions mirrors cmdHistory: refresh the local ledger cache
// when the backend answers, fall back to the cached copy when not.
func (a *app) cmdTransactions(ctx context.Context) error {
	userID, err := a.requireSession()
	if err != nil {
		return err
	}

	cache, err := history.Open(a.cfg.Store.Path+".history.db", a.logger)
	if err != nil {
		return err
	}
	defer cache.Close()

	if fresh, err := a.wallets.Transactions(ctx, userID); err != nil {
		a.logger.Warn().Err(err).Msg("ledger refresh failed, showing cached copy")
	} else if err := cache.ReplaceTransactions(ctx, userID, fresh); err != nil {
		a.logger.Warn().Err(err).Msg("could not update ledger cache")
	}

	txns, err := cache.Transactions(ctx, userID)
	if err != nil {
		return err
	}
	for _, txn := range txns {
		fmt.Printf("%-26s %-10s %+9.2f %s\n", txn.Timestamp, txn.Status, txn.Amount, txn.Description)
	}
	return nil
}

func (a *app) cmdExport(ctx context.Context) error {
	userID, err := a.requireSession()
	if err != nil {
		return err
	}
	list, err := a.bookings.History(ctx, userID)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(a.cfg.Exports.Path, a.logger)
	path, err := exporter.BookingHistory(userID, list)
	if err != nil {
		return err
	}
	a.notifier.ExportReady(userID, path)
	fmt.Println("Written " + path)
	return nil
}

// promptGateway stands in for the Razorpay checkout screen: it prints
// the order and asks the user to complete the payment in a browser,
// then paste the payment id back.
type promptGateway struct {
	in    *bufio.Reader
	keyID string
}

func (g *promptGateway) Checkout(_ context.Context, order payment.Order) (string, error) {
	fmt.Printf("Pay %d %s (order %s) via Razorpay key %s, then paste the payment id.\n",
		order.AmountMinor, order.Currency, order.ID, g.keyID)
	fmt.Print("Payment id (empty to abort): ")
	line, err := g.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	paymentID := strings.TrimSpace(line)
	if paymentID == "" {
		return "", fmt.Errorf("payment aborted")
	}
	return paymentID, nil
}
