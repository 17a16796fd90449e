package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// addIDAlias はページング応答 {"items": [...]} の各要素に、keyの値をidとして補う。
// 既にidを持つ要素と、keyを持たない要素は変更しない。
// itemsを持たない応答はそのまま返す。
func addIDAlias(body json.RawMessage, key string) (json.RawMessage, error) {
	if !gjson.GetBytes(body, "items").IsArray() {
		return body, nil
	}

	var page map[string]json.RawMessage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("一覧応答の解析に失敗: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(page["items"], &items); err != nil {
		return nil, fmt.Errorf("itemsの解析に失敗: %w", err)
	}

	changed := false
	for i, raw := range items {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			// オブジェクトでない要素は対象外
			continue
		}
		if _, ok := item["id"]; ok {
			continue
		}
		v, ok := item[key]
		if !ok {
			continue
		}
		item["id"] = v
		b, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("要素の再構築に失敗: %w", err)
		}
		items[i] = b
		changed = true
	}
	if !changed {
		return body, nil
	}

	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("itemsの再構築に失敗: %w", err)
	}
	page["items"] = b
	return json.Marshal(page)
}
