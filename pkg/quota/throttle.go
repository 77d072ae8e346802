package quota

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DailyLimit は1日あたりの生成回数の上限です。
	DailyLimit = 20
	// RecordKey は Store 上のレコード名です。
	RecordKey = "headshotGenerationLimit"
	// DateLayout はレコードの日付書式 (YYYY-MM-DD) です。
	DateLayout = "2006-01-02"
)

// Record は永続化される利用回数レコードです。
type Record struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Result は TryConsume の結果です。
type Result struct {
	Granted   bool
	Remaining int
}

// Throttle はその日の生成回数をクライアント側で数えるだけの助言的な制限です。
// 上限の強制はしません。呼び出し側が Remaining() > 0 を事前に確認します。
type Throttle struct {
	store Store
	limit int
	now   func() time.Time
}

// Option は Throttle の設定を変更します。
type Option func(*Throttle)

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

// WithLimit は上限回数を差し替えます。
func WithLimit(limit int) Option {
	return func(t *Throttle) { t.limit = limit }
}

// NewThrottle は Throttle を生成します。
func NewThrottle(store Store, opts ...Option) (*Throttle, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	t := &Throttle{
		store: store,
		limit: DailyLimit,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Limit は1日の上限回数を返します。
func (t *Throttle) Limit() int {
	return t.limit
}

// Today は今日の日付 (UTC) を返します。
func (t *Throttle) Today() string {
	return t.now().UTC().Format(DateLayout)
}

// Remaining は今日の残り回数を返します。レコードは書き換えません。
func (t *Throttle) Remaining() int {
	used := t.usedToday(t.Today())
	return max(0, t.limit-used)
}

// TryConsume は保存済みレコードを読み直して1回分加算します。
// 上限に達していても加算は行われます。
func (t *Throttle) TryConsume() (Result, error) {
	today := t.Today()
	next := Record{Date: today, Count: t.usedToday(today) + 1}

	data, err := json.Marshal(next)
	if err != nil {
		return Result{}, err
	}
	if err := t.store.Set(RecordKey, string(data)); err != nil {
		return Result{}, fmt.Errorf("利用回数の保存に失敗しました: %w", err)
	}

	remaining := max(0, t.limit-next.Count)
	slog.Debug("利用回数を更新しました", "date", today, "count", next.Count, "remaining", remaining)
	return Result{Granted: true, Remaining: remaining}, nil
}

// usedToday は today の利用回数を返します。
// レコードがない、日付が違う、壊れている場合は 0 とみなします。
func (t *Throttle) usedToday(today string) int {
	raw, ok, err := t.store.Get(RecordKey)
	if err != nil {
		slog.Debug("利用回数レコードを読めなかったためリセット扱いにします", "error", err)
		return 0
	}
	if !ok {
		return 0
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		slog.Debug("利用回数レコードが不正なためリセット扱いにします", "error", err)
		return 0
	}
	if rec.Date != today || rec.Count < 0 {
		return 0
	}
	return rec.Count
}
