package gateway

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

// TestValidationMessage はvalidationMessage関数を検証する。
func TestValidationMessage(t *testing.T) {
	t.Parallel()

	registerFieldNames()

	type sample struct {
		Name  *string `json:"name" binding:"required"`
		Email string  `json:"email" binding:"omitempty,email"`
		Code  string  `json:"code" binding:"omitempty,min=3"`
		Page  int     `form:"page" binding:"min=1"`
	}

	tests := []struct {
		name  string
		input sample
		want  string
	}{
		{
			name:  "nilの必須フィールドはJSONのキー名で報告されること",
			input: sample{Page: 1},
			want:  "name は必須です",
		},
		{
			name:  "空文字列の必須フィールドは受け付けること",
			input: sample{Name: ptr(""), Page: 1},
		},
		{
			name:  "文字数の下限違反が報告されること",
			input: sample{Name: ptr("x"), Code: "ab", Page: 1},
			want:  "code は3文字以上である必要があります",
		},
		{
			name:  "jsonタグが無い場合はformタグの名前で報告されること",
			input: sample{Name: ptr("x")},
			want:  "page は1以上である必要があります",
		},
		{
			name:  "複数の違反がまとめて報告されること",
			input: sample{Email: "broken"},
			want:  "name は必須です; email はメールアドレスの形式である必要があります; page は1以上である必要があります",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := binding.Validator.ValidateStruct(tt.input)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, validationMessage(err))
		})
	}

	t.Run("検証エラー以外のエラーはそのまま返ること", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "unexpected", validationMessage(errors.New("unexpected")))
	})
}

// TestBindErrorMessages は不正なボディに対する422のメッセージを検証する。
func TestBindErrorMessages(t *testing.T) {
	t.Parallel()

	s, upstream := newTestServerWithUpstream(t, http.NewServeMux())

	t.Run("型が異なる値はキー名で報告されること", func(t *testing.T) {
		t.Parallel()

		w := doRequest(s, http.MethodPost, "/api/crop-year/", testToken, map[string]any{"crop_year_name": 1403})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "リクエストの検証に失敗しました: crop_year_name の型が不正です（stringが必要です）", detailOf(t, w))
	})

	t.Run("JSONとして解釈できないボディが報告されること", func(t *testing.T) {
		t.Parallel()

		w := doRawRequest(s, http.MethodPost, "/api/province/", testToken, `{"province":`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.True(t, strings.HasPrefix(detailOf(t, w), "リクエストの検証に失敗しました: "))
	})

	t.Run("空のボディが報告されること", func(t *testing.T) {
		t.Parallel()

		w := doRawRequest(s, http.MethodPost, "/api/province/", testToken, "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "リクエストの検証に失敗しました: リクエストボディが空です", detailOf(t, w))
	})

	t.Cleanup(func() {
		assert.Empty(t, upstream.Requests())
	})
}
