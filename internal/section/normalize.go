package section

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/hitoshi/tenantbase/internal/model"
)

// NormalizeSchema は入力されたセクションスキーマを正規のfields配列形式に整える。
// 2つの入力形式を受け付ける:
//   - {"fields": [{"key": ..., "label": ..., ...}, ...]} 形式の配列
//   - {"<key>": {"label": ..., "type": ...}, ...} 形式のキー付きオブジェクト
//
// key を持たないエントリは捨てる。キー付きオブジェクトでは friendlyname を
// label の別名として受け付ける。
func NormalizeSchema(raw map[string]any) model.SectionSchema {
	if raw == nil {
		return model.SectionSchema{Fields: []model.SectionField{}}
	}

	if fields, ok := raw["fields"].([]any); ok {
		return normalizeFieldList(fields)
	}

	return normalizeKeyedObject(raw)
}

// normalizeFieldList はfields配列形式を正規化する。
func normalizeFieldList(entries []any) model.SectionSchema {
	fields := make([]model.SectionField, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		key := trimmedString(obj["key"])
		if key == "" {
			continue
		}
		field := model.SectionField{
			Key:   key,
			Label: trimmedString(obj["label"]),
			Type:  fieldType(obj["type"]),
		}
		if field.Label == "" {
			field.Label = key
		}
		if opts := rawOptions(obj["options"]); opts != nil {
			field.Options = opts
		}
		if order, ok := intValue(obj["order"]); ok {
			field.Order = &order
		}
		fields = append(fields, field)
	}
	return model.SectionSchema{Fields: fields}
}

// normalizeKeyedObject はキー付きオブジェクト形式を正規化する。
// 出力順はorder指定を優先し、未指定同士はキーの辞書順で安定させる。
func normalizeKeyedObject(raw map[string]any) model.SectionSchema {
	fields := make([]model.SectionField, 0, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		obj, ok := value.(map[string]any)
		if !ok {
			continue
		}
		field := model.SectionField{
			Key:   key,
			Label: trimmedString(obj["label"]),
			Type:  fieldType(obj["type"]),
		}
		if field.Label == "" {
			field.Label = trimmedString(obj["friendlyname"])
		}
		if field.Label == "" {
			field.Label = key
		}
		if opts := rawOptions(obj["options"]); opts != nil {
			field.Options = opts
		}
		if order, ok := intValue(obj["order"]); ok {
			field.Order = &order
		}
		fields = append(fields, field)
	}

	sort.SliceStable(fields, func(i, j int) bool {
		oi, oj := fields[i].Order, fields[j].Order
		switch {
		case oi != nil && oj != nil:
			if *oi != *oj {
				return *oi < *oj
			}
		case oi != nil:
			return true
		case oj != nil:
			return false
		}
		return fields[i].Key < fields[j].Key
	})

	return model.SectionSchema{Fields: fields}
}

// trimmedString は値をトリム済み文字列として取り出す。文字列以外は空文字。
func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// fieldType はフィールド型を取り出す。未指定は "text" とする。
func fieldType(v any) string {
	t := trimmedString(v)
	if t == "" {
		return "text"
	}
	return t
}

// rawOptions はoptions値をそのままJSONとして保持する。
func rawOptions(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return encoded
}

// intValue は数値をintとして取り出す。JSONデコード経由のfloat64も受ける。
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
