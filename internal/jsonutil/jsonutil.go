// Package jsonutil formats API responses for terminal output.
package jsonutil

import (
	"bytes"
	"strings"

	"github.com/fatih/structs"
	"github.com/hokaccha/go-prettyjson"
)

var formatter *prettyjson.Formatter

func init() {
	formatter = prettyjson.NewFormatter()
	formatter.Indent = 0
	formatter.Newline = ""
}

// MarshalCompactPretty formats the fields of struct v one per line with colored JSON values.
// Fields are named by their json tags and printed in declaration order.
// Values that are not structs are formatted as a whole.
func MarshalCompactPretty(v any) ([]byte, error) {
	if !structs.IsStruct(v) {
		return prettyjson.Marshal(v)
	}
	var buf bytes.Buffer
	for _, f := range structs.Fields(v) {
		if !f.IsExported() {
			continue
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		b, err := formatter.Marshal(f.Value())
		if err != nil {
			return nil, err
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.Write(b)
		buf.WriteRune('\n')
	}
	return buf.Bytes(), nil
}

func fieldName(f *structs.Field) string {
	tag := f.Tag("json")
	if tag == "" {
		return f.Name()
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name()
	}
	return name
}
