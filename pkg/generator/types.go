package generator

const (
	UseImageCompression     = true
	ImageCompressionQuality = 75
	// CompressionThreshold を超える入力画像は送信前に JPEG へ再圧縮します。
	CompressionThreshold = 4 << 20
	// HeadshotAspectRatio はヘッドショットの出力アスペクト比です。
	HeadshotAspectRatio = "1:1"
)

// ImageOutput は Core の内部解析結果
type ImageOutput struct {
	Data         []byte
	MimeType     string
	FinishReason string
}
