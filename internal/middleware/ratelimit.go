package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
// 公開APIは未認証で叩けるため、制限は接続元IPアドレス単位で行う。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // 公開API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // 公開API全般のバーストサイズ
	LoginRate       rate.Limit    // ログイン試行のレート（req/sec）。5/60
	LoginBurst      int           // ログイン試行のバーストサイズ
	FeedbackRate    rate.Limit    // フィードバック投稿のレート（req/sec）。10/60
	FeedbackBurst   int           // フィードバック投稿のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔

	// TrustProxyHeader が有効な場合のみX-Forwarded-Forの先頭IPを接続元として扱う。
	// リバースプロキシ背後で運用する構成でのみ有効化すること。直接公開の構成で
	// 有効にすると、ヘッダーの書き換えでIP単位の制限を回避できてしまう。
	TrustProxyHeader bool
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 公開API 120 req/min/IP、ログイン 5 req/min/IP、フィードバック 10 req/min/IP。
// X-Forwarded-Forはデフォルトでは信頼しない。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		LoginRate:       rate.Limit(5.0 / 60.0),
		LoginBurst:      5,
		FeedbackRate:    rate.Limit(10.0 / 60.0),
		FeedbackBurst:   10,
		CleanupInterval: 5 * time.Minute,
	}
}

// limiterEntry は接続元ごとのレートリミッターとアクセス時刻を保持する。
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool は1クラス分（general/login/feedback）のリミッター集合。
type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rate    rate.Limit
	burst   int
}

func newLimiterPool(r rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		entries: make(map[string]*limiterEntry),
		rate:    r,
		burst:   burst,
	}
}

// get は接続元キーのリミッターを取得または作成する。
func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.entries[key]; ok {
		entry.lastAccess = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(p.rate, p.burst)
	p.entries[key] = &limiterEntry{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

// sweep は最終アクセス時刻がttlを超えたエントリを削除する。
func (p *limiterPool) sweep(ttl time.Duration) {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.entries {
		if now.Sub(entry.lastAccess) > ttl {
			delete(p.entries, key)
		}
	}
}

// size は現在管理されているエントリ数を返す。テストおよびメトリクス用。
func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// RateLimiter は接続元IPアドレスごとのレート制限を管理する。
// 公開API全般・ログイン・フィードバック投稿の3クラスを独立に制限する。
type RateLimiter struct {
	config   RateLimiterConfig
	general  *limiterPool
	login    *limiterPool
	feedback *limiterPool
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		general:  newLimiterPool(config.GeneralRate, config.GeneralBurst),
		login:    newLimiterPool(config.LoginRate, config.LoginBurst),
		feedback: newLimiterPool(config.FeedbackRate, config.FeedbackBurst),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware は公開API全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, "general")
}

// LoginMiddleware はログイン試行専用のレート制限ミドルウェアを返す。
// 総当たり対策として公開APIの制限より大幅に厳しい。
func (rl *RateLimiter) LoginMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.login, "login")
}

// FeedbackMiddleware はフィードバック投稿専用のレート制限ミドルウェアを返す。
func (rl *RateLimiter) FeedbackMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.feedback, "feedback")
}

// GeneralLimiterCount は現在管理されている公開APIリミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.size()
}

// LoginLimiterCount は現在管理されているログインリミッターのエントリ数を返す。
func (rl *RateLimiter) LoginLimiterCount() int {
	return rl.login.size()
}

func (rl *RateLimiter) middleware(pool *limiterPool, class string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r, rl.config.TrustProxyHeader)

			if !pool.get(key).Allow() {
				writeRateLimitResponse(w, pool.rate)
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", key),
					slog.String("limit_type", class),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP は接続元IPアドレスを取得する。
// trustProxyが有効な場合のみX-Forwarded-Forの先頭を優先し、
// それ以外ではTCP接続のリモートアドレスを使用する。
func clientIP(r *http.Request, trustProxy bool) string {
	if xff := r.Header.Get("X-Forwarded-For"); trustProxy && xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ttl := rl.config.CleanupInterval * 2
			rl.general.sweep(ttl)
			rl.login.sweep(ttl)
			rl.feedback.sweep(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
