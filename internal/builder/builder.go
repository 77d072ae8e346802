package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/shouni/gemini-headshot-kit/pkg/capture"
	"github.com/shouni/gemini-headshot-kit/pkg/chat"
	"github.com/shouni/gemini-headshot-kit/pkg/crop"
	"github.com/shouni/gemini-headshot-kit/pkg/generator"
	"github.com/shouni/gemini-headshot-kit/pkg/orchestrator"
	"github.com/shouni/gemini-headshot-kit/pkg/quota"
	"github.com/shouni/gemini-headshot-kit/pkg/studio"
	"github.com/shouni/gemini-headshot-kit/pkg/styles"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"
)

const defaultGeminiTemperature = float32(0.4)

// App は CLI から利用する組み立て済みの部品一式です。
type App struct {
	Workspace    *studio.Workspace
	Orchestrator *orchestrator.Orchestrator
	Styles       *styles.Catalog
	Camera       *capture.Camera // --camera-url が指定されなければ nil
}

// Close は保持しているリソースを解放します。
func (a *App) Close() error {
	return a.Workspace.Close()
}

// BuildThrottle はファイルに状態を保存する Throttle を構築します。
func BuildThrottle(stateFile string) (*quota.Throttle, error) {
	store, err := quota.NewFileStore(stateFile)
	if err != nil {
		return nil, fmt.Errorf("状態ファイルの初期化に失敗しました: %w", err)
	}
	return quota.NewThrottle(store)
}

// BuildApp はヘッドショット生成に必要な部品を組み立てます。
func BuildApp(ctx context.Context, appCtx *AppContext) (*App, error) {
	gen, err := InitializeGenerator(ctx, appCtx)
	if err != nil {
		return nil, err
	}

	reader, writer, err := InitializeRemoteIO(ctx)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(gen, appCtx.Throttle)
	if err != nil {
		return nil, fmt.Errorf("Orchestrator の初期化に失敗しました: %w", err)
	}

	catalog, err := styles.Default()
	if err != nil {
		return nil, fmt.Errorf("スタイル一覧の読み込みに失敗しました: %w", err)
	}

	// 参照画像のダウンロード結果を保持するキャッシュ
	imgCache := cache.New(capture.DefaultCacheTTL, 1*time.Hour)
	source, err := capture.NewFileSource(appCtx.Codec, reader, appCtx.httpClient, imgCache, capture.DefaultCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("画像ソースの初期化に失敗しました: %w", err)
	}

	engine, err := crop.NewEngine(appCtx.Codec)
	if err != nil {
		return nil, fmt.Errorf("クロップエンジンの初期化に失敗しました: %w", err)
	}

	camera, err := BuildCamera(appCtx)
	if err != nil {
		return nil, err
	}

	deps := studio.Deps{
		Loader:    source,
		Cropper:   engine,
		Generator: orch,
		Styles:    catalog,
		Writer:    writer,
	}
	// nil の *Camera をインターフェースに入れると nil 判定できなくなる
	if camera != nil {
		deps.Camera = camera
	}
	ws, err := studio.New(deps)
	if err != nil {
		return nil, fmt.Errorf("ワークスペースの初期化に失敗しました: %w", err)
	}

	return &App{
		Workspace:    ws,
		Orchestrator: orch,
		Styles:       catalog,
		Camera:       camera,
	}, nil
}

// InitializeRemoteIO はローカルと GCS (gs://) の両方を扱う Reader と Writer を初期化します。
func InitializeRemoteIO(ctx context.Context) (remoteio.InputReader, remoteio.OutputWriter, error) {
	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, nil, fmt.Errorf("InputReader の初期化に失敗しました: %w", err)
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, nil, fmt.Errorf("OutputWriter の初期化に失敗しました: %w", err)
	}
	return reader, writer, nil
}

// BuildCamera は --camera-url が指定されていればスナップショットカメラを構築します。
func BuildCamera(appCtx *AppContext) (*capture.Camera, error) {
	if appCtx.Options.CameraURL == "" {
		return nil, nil
	}
	device, err := capture.NewHTTPSnapshotDevice(appCtx.httpClient, appCtx.Options.CameraURL)
	if err != nil {
		return nil, fmt.Errorf("カメラの初期化に失敗しました: %w", err)
	}
	return capture.NewCamera(device, appCtx.Codec)
}

// BuildChatSession はチャット用のセッションを構築します。
func BuildChatSession(ctx context.Context, appCtx *AppContext) (*chat.Session, error) {
	gen, err := InitializeGenerator(ctx, appCtx)
	if err != nil {
		return nil, err
	}
	return chat.NewSession(gen)
}

// InitializeGenerator は Gemini を使う生成器を初期化します。
func InitializeGenerator(ctx context.Context, appCtx *AppContext) (*generator.GeminiGenerator, error) {
	aiClient, err := InitializeAIClient(ctx, appCtx.Config.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	core, err := generator.NewGeminiImageCore(aiClient)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	gen, err := generator.NewGeminiGenerator(core, aiClient, appCtx.Config.GeminiImageModel, appCtx.Config.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("GeminiGenerator の初期化に失敗しました: %w", err)
	}
	return gen, nil
}

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (generator.GenerativeModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("環境変数 GEMINI_API_KEY が設定されていません")
	}
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}
