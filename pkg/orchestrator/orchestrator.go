package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shouni/gemini-headshot-kit/pkg/domain"
	"github.com/shouni/gemini-headshot-kit/pkg/quota"

	"golang.org/x/time/rate"
)

const (
	// CooldownPeriod は生成が終わってから次の生成を受け付けるまでの待ち時間です。
	CooldownPeriod = 5 * time.Second

	MsgMissingInput = "Please upload a selfie and select a style."
)

// State はオーケストレーターの状態です。
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateCooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HeadshotGenerator は外部の画像生成呼び出しです。
type HeadshotGenerator interface {
	GenerateHeadshot(ctx context.Context, req domain.HeadshotRequest) (*domain.ImageResponse, error)
}

// Quota は1日の利用回数を管理します。*quota.Throttle はこれを満たします。
type Quota interface {
	Limit() int
	Remaining() int
	TryConsume() (quota.Result, error)
}

// Orchestrator は入力検証、利用回数の消費、プロンプト組み立て、生成呼び出し、
// クールダウンまでの一連の流れを管理します。同時に走る生成は1つだけです。
type Orchestrator struct {
	generator HeadshotGenerator
	quota     Quota
	now       func() time.Time
	cooldown  time.Duration

	mu      sync.Mutex
	state   State // Idle / Validating / Submitting のみ保持し、Cooldown は limiter から導出する
	limiter *rate.Limiter
	result  *domain.ImageResponse
	lastErr string
}

// Option は Orchestrator の設定を変更します。
type Option func(*Orchestrator)

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCooldown はクールダウン時間を差し替えます。
func WithCooldown(d time.Duration) Option {
	return func(o *Orchestrator) { o.cooldown = d }
}

// New は Orchestrator を生成します。
func New(generator HeadshotGenerator, q Quota, opts ...Option) (*Orchestrator, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if q == nil {
		return nil, fmt.Errorf("quota is required")
	}
	o := &Orchestrator{
		generator: generator,
		quota:     q,
		now:       time.Now,
		cooldown:  CooldownPeriod,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive: %s", o.cooldown)
	}
	o.limiter = rate.NewLimiter(rate.Every(o.cooldown), 1)
	return o, nil
}

// State は現在の状態を返します。
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentState(o.now())
}

func (o *Orchestrator) currentState(now time.Time) State {
	if o.state != StateIdle {
		return o.state
	}
	if o.limiter.TokensAt(now) < 1 {
		return StateCooldown
	}
	return StateIdle
}

// CooldownRemaining はクールダウンが明けるまでの残り時間を返します。
func (o *Orchestrator) CooldownRemaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	tokens := o.limiter.TokensAt(o.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(o.limiter.Limit()) * float64(time.Second))
}

// Result は直近に成功した生成結果を返します。
func (o *Orchestrator) Result() *domain.ImageResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// LastError は直近の失敗の表示用メッセージを返します。
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Remaining は今日の残り生成回数を返します。
func (o *Orchestrator) Remaining() int {
	return o.quota.Remaining()
}

// Generate は image と style からヘッドショットを生成します。
// 入力不備や上限到達の場合は ErrValidation を返し、状態も利用回数も変えません。
// 生成中・クールダウン中の呼び出しは待たずに拒否します。
func (o *Orchestrator) Generate(ctx context.Context, image *domain.NormalizedImage, style *domain.StylePreset, userText string) (*domain.ImageResponse, error) {
	o.mu.Lock()
	switch o.currentState(o.now()) {
	case StateValidating, StateSubmitting:
		o.mu.Unlock()
		return nil, domain.ErrBusy
	case StateCooldown:
		o.mu.Unlock()
		return nil, domain.ErrCoolingDown
	}

	o.state = StateValidating
	if err := o.validate(image, style, userText); err != nil {
		o.state = StateIdle
		o.lastErr = domain.UserMessage(err)
		o.mu.Unlock()
		return nil, err
	}

	if res, err := o.quota.TryConsume(); err != nil {
		slog.WarnContext(ctx, "利用回数の保存に失敗しましたが生成を続行します", "error", err)
	} else {
		slog.DebugContext(ctx, "利用回数を消費しました", "remaining", res.Remaining)
	}

	req := domain.HeadshotRequest{
		ImageBase64: image.Base64,
		MimeType:    image.MimeType,
		Prompt:      BuildPrompt(*style, userText),
	}
	o.state = StateSubmitting
	o.result = nil
	o.lastErr = ""
	o.mu.Unlock()

	slog.InfoContext(ctx, "ヘッドショットを生成します", "style", style.ID)
	resp, genErr := o.generator.GenerateHeadshot(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.limiter.AllowN(o.now(), 1)

	if genErr != nil {
		o.lastErr = domain.UserMessage(genErr)
		slog.WarnContext(ctx, "ヘッドショットの生成に失敗しました", "error", genErr)
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, genErr)
	}
	if resp == nil || len(resp.Data) == 0 {
		o.lastErr = domain.UnknownErrorMessage
		return nil, &domain.UserError{Kind: domain.ErrGeneration, Message: domain.UnknownErrorMessage}
	}

	o.result = resp
	slog.InfoContext(ctx, "ヘッドショットを生成しました", "mime_type", resp.MimeType, "bytes", len(resp.Data))
	return resp, nil
}

func (o *Orchestrator) validate(image *domain.NormalizedImage, style *domain.StylePreset, userText string) error {
	if image == nil || style == nil {
		return domain.NewUserError(domain.ErrValidation, MsgMissingInput)
	}
	if style.RequiresUserInput() && strings.TrimSpace(userText) == "" {
		return domain.NewUserError(domain.ErrValidation, "Please provide the required text: %q", style.UserInput.Label)
	}
	if o.quota.Remaining() <= 0 {
		return &domain.UserError{
			Kind: domain.ErrQuotaExhausted,
			Message: fmt.Sprintf("You have reached your daily generation limit of %d headshots. Please try again tomorrow.",
				o.quota.Limit()),
		}
	}
	return nil
}

// BuildPrompt はスタイルのプロンプトを組み立てます。
// 自由入力を持つスタイルに限り、{{username}} をすべて前後の空白を除いた userText に置換します。
func BuildPrompt(style domain.StylePreset, userText string) string {
	if !style.RequiresUserInput() {
		return style.Prompt
	}
	return strings.ReplaceAll(style.Prompt, domain.UsernamePlaceholder, strings.TrimSpace(userText))
}
