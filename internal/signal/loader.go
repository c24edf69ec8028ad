package signal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"alphatrade/internal/backtest"
)

// 信号文件为 JSON 数组，逐条校验后再进引擎。
const signalSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["timestamp", "symbol", "side", "quantity"],
    "properties": {
      "timestamp": {"type": "string", "minLength": 1},
      "symbol": {"type": "string", "minLength": 1},
      "side": {"type": "string", "enum": ["BUY", "SELL"]},
      "quantity": {"type": "number", "exclusiveMinimum": 0}
    }
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("signals.json", strings.NewReader(signalSchema)); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("signals.json")
	if err != nil {
		panic(err)
	}
	return schema
}

// LoadFile 读取并校验信号文件。
func LoadFile(path string) ([]backtest.SignalRow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取信号文件失败: %w", err)
	}
	return Parse(string(raw))
}

// Parse 校验 JSON 内容并转换为信号行。
func Parse(raw string) ([]backtest.SignalRow, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("信号内容为空")
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("json 格式无效")
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("信号 schema 校验失败: %w", err)
	}

	parsed := gjson.Parse(raw)
	var out []backtest.SignalRow
	parsed.ForEach(func(_, value gjson.Result) bool {
		out = append(out, backtest.SignalRow{
			Timestamp: value.Get("timestamp").String(),
			Symbol:    value.Get("symbol").String(),
			Side:      value.Get("side").String(),
			Quantity:  value.Get("quantity").Float(),
		})
		return true
	})
	return out, nil
}
