package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddIDAlias はaddIDAlias関数を検証する。
func TestAddIDAlias(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keyの値がidとして補われること",
			in:   `{"items":[{"province_id":1,"province":"Fars"}],"total":1}`,
			want: `{"items":[{"province_id":1,"province":"Fars","id":1}],"total":1}`,
		},
		{
			name: "既存のidは上書きされないこと",
			in:   `{"items":[{"province_id":1,"id":"keep"}]}`,
			want: `{"items":[{"province_id":1,"id":"keep"}]}`,
		},
		{
			name: "keyを持たない要素とオブジェクト以外の要素は変更されないこと",
			in:   `{"items":[{"name":"x"},3,null]}`,
			want: `{"items":[{"name":"x"},3,null]}`,
		},
		{
			name: "大きな数値の精度が保たれること",
			in:   `{"items":[{"province_id":9007199254740993}]}`,
			want: `{"items":[{"province_id":9007199254740993,"id":9007199254740993}]}`,
		},
		{
			name: "itemsが無い応答はそのまま返ること",
			in:   `[{"province_id":1}]`,
			want: `[{"province_id":1}]`,
		},
		{
			name: "itemsが配列でない応答はそのまま返ること",
			in:   `{"items":"none"}`,
			want: `{"items":"none"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := addIDAlias(json.RawMessage(tt.in), "province_id")
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	t.Run("変更が無い場合は元のバイト列を返すこと", func(t *testing.T) {
		t.Parallel()

		in := json.RawMessage(`{"items": [ {"name": "x"} ], "page": 1}`)
		got, err := addIDAlias(in, "province_id")
		require.NoError(t, err)
		assert.Equal(t, string(in), string(got))
	})
}
