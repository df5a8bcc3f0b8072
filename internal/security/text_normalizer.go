// Package security はユーザー入力テキストの検査機能を提供する。
//
// name, task, emailはJSONでのみ返すため、マークアップやエンティティは
// 書き換えずにそのまま保存する。拒否するのはPostgreSQLのTEXTに格納できない
// NUL文字と不正なUTF-8だけ。
package security

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNULCharacter は入力にU+0000が含まれる場合に返される。
	ErrNULCharacter = errors.New("text contains a NUL character")
	// ErrInvalidUTF8 は入力が正しいUTF-8でない場合に返される。
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")
)

// TextNormalizer はプレーンテキスト入力の正規化インターフェース。
type TextNormalizer interface {
	// Normalize は前後の空白を取り除いた文字列を返す。それ以外は一切変更しない。
	// 保存できない文字を含む場合はErrNULCharacterかErrInvalidUTF8を返す。
	// Normalize(Normalize(x)) == Normalize(x) が常に成り立つ。
	Normalize(raw string) (string, error)
}

type textNormalizer struct{}

// NewTextNormalizer はTextNormalizerを生成する。
func NewTextNormalizer() TextNormalizer {
	return textNormalizer{}
}

func (textNormalizer) Normalize(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexByte(raw, 0) >= 0 {
		return "", ErrNULCharacter
	}
	return strings.TrimSpace(raw), nil
}
