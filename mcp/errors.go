package mcp

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound = errors.New("設定ファイルが見つかりません")
	ErrConfigParse    = errors.New("設定ファイルの解析に失敗しました")
	ErrMissingEnvVar  = errors.New("環境変数が設定されていません")

	ErrServerInit           = errors.New("サーバーの初期化に失敗しました")
	ErrServerNotInitialized = errors.New("サーバーが初期化されていません")
	ErrServerClosed         = errors.New("サーバーは既に終了しています")
	ErrToolExecution        = errors.New("ツールの実行に失敗しました")
)

// MissingEnvVarError は設定ファイル内で参照された環境変数が未設定の場合のエラー
type MissingEnvVarError struct {
	Server string
	Var    string
}

func (e *MissingEnvVarError) Error() string {
	return fmt.Sprintf("%s: server %q references $%s", ErrMissingEnvVar.Error(), e.Server, e.Var)
}

func (e *MissingEnvVarError) Is(target error) bool {
	return target == ErrMissingEnvVar
}
