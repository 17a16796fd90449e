package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerFieldNamesOnce はバリデータへのフィールド名関数の登録を1回に限る。
var registerFieldNamesOnce sync.Once

// registerFieldNames はGinのバリデータがエラーでjsonタグ（無ければformタグ）の名前を使うように設定する。
func registerFieldNames() {
	registerFieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
	})
}

// fieldName は構造体フィールドのリクエスト上の名前を返す。
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return f.Name
}

// validationMessage はバインド時のエラーをダッシュボードに表示できるメッセージに変換する。
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Field()+" "+ruleMessage(fe))
		}
		return strings.Join(msgs, "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s の型が不正です（%sが必要です）", typeErr.Field, typeErr.Type.Kind())
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "JSONの形式が不正です"
	}
	if errors.Is(err, io.EOF) {
		return "リクエストボディが空です"
	}
	return err.Error()
}

// ruleMessage は違反した検証ルールの説明を返す。
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "は必須です"
	case "email":
		return "はメールアドレスの形式である必要があります"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("は%s文字以上である必要があります", fe.Param())
		}
		return fmt.Sprintf("は%s以上である必要があります", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("は%s文字以下である必要があります", fe.Param())
		}
		return fmt.Sprintf("は%s以下である必要があります", fe.Param())
	default:
		return fmt.Sprintf("が %s の検証に失敗しました", fe.Tag())
	}
}
