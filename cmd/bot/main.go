package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"go.uber.org/zap"

	"github.com/deniganda/Cek-KodeRUP/internal/config"
	"github.com/deniganda/Cek-KodeRUP/internal/match"
	"github.com/deniganda/Cek-KodeRUP/internal/ocr/gemini"
	"github.com/deniganda/Cek-KodeRUP/internal/session"
	"github.com/deniganda/Cek-KodeRUP/internal/store"
	"github.com/deniganda/Cek-KodeRUP/internal/telegram"
)

func main() {
	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	}

	// --- Postgres (optional: cache + audit only) ---
	var (
		extracts    *store.ExtractRepo
		submissions *store.SubmissionRepo
	)
	if dsn := resolveDSN(); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			log.Fatal("sql.Open", zap.Error(err))
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			log.Fatal("db.Ping", zap.Error(err))
		}
		cancel()
		log.Info("db connected", zap.String("dsn", safeDSNSummary(dsn)))

		extracts = store.NewExtractRepo(db)
		submissions = store.NewSubmissionRepo(db)

		go purgeLoop(log, extracts)

		http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	} else {
		log.Warn("no database configured; extraction cache and submission log disabled")
		http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false

	r := &telegram.Router{
		Bot:          bot,
		Engine:       gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel),
		Sessions:     session.NewStore(cfg.SessionTTL, log),
		Institutions: match.ParseList(cfg.Institutions),
		Officials:    match.ParseList(cfg.Officials),
		Extracts:     extracts,
		Submissions:  submissions,
		Log:          log,
	}
	log.Info("reference lists loaded",
		zap.Int("institutions", r.Institutions.Len()),
		zap.Int("officials", r.Officials.Len()))

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(log, addr, bot, r, webhookURL)
	} else {
		startPollingMode(log, addr, bot, r)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(log *zap.Logger, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("webhook register", zap.Error(err))
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Warn("webhook updates channel closed")
	}()

	log.Info("webhook listening", zap.String("addr", addr), zap.String("path", path))
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("http", zap.Error(err))
	}
}

func startPollingMode(log *zap.Logger, addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	go func() {
		log.Info("health server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Fatal("http", zap.Error(err))
		}
	}()
	runPolling(context.Background(), log, bot, r.HandleUpdate)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, log *zap.Logger, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("polling stopped")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// purgeLoop drops extraction cache rows older than the staleness window once
// a day so the table stays bounded.
func purgeLoop(log *zap.Logger, extracts *store.ExtractRepo) {
	const keep = 30 * 24 * time.Hour
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := extracts.PurgeOlderThan(ctx, keep)
		cancel()
		if err != nil {
			log.Warn("cache purge", zap.Error(err))
			continue
		}
		if n > 0 {
			log.Info("cache purged", zap.Int64("rows", n))
		}
	}
}

// ---------------- Helpers -----------------

func resolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	// Build from POSTGRES_* / PG* vars when a password is provided.
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		return ""
	}
	user := getenvDefault("POSTGRES_USER", "sptbot")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	db := getenvDefault("POSTGRES_DB", "sptbot")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// shortHash keeps the webhook path stable per token without exposing it.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		host = h
	}
	return host + "/" + strings.TrimPrefix(u.Path, "/")
}
