package logger

import (
	"io"
	"log/slog"
	"os"
)

// serviceName は全ログ行に付与するサービス名。
const serviceName = "nytreact"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// levelはLevelVarで受け取り、設定読み込み後にレベルを変更できるようにする。
func Setup(w io.Writer, level *slog.LevelVar) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する。
// 戻り値のLevelVarはInfoで初期化されており、呼び出し側で変更できる。
func SetupDefault(w io.Writer) *slog.LevelVar {
	if w == nil {
		w = os.Stdout
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	slog.SetDefault(Setup(w, level))
	return level
}
