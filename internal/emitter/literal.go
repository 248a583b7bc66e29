package emitter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/meshweave/internal/value"
	"github.com/vk/meshweave/internal/xform"
)

// FormatLiteral renders v in Lua literal syntax. Mesh handles have no
// literal form.
func FormatLiteral(v value.Value) (string, error) {
	switch v.Type() {
	case value.Scalar:
		return formatScalar(v.AsFloat()), nil
	case value.Integer:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case value.Bool:
		return strconv.FormatBool(v.AsBool()), nil
	case value.Vector3:
		return formatVector(v.AsVector()), nil
	case value.Transform:
		t := v.AsTransform()
		return fmt.Sprintf("{translation = %s, rotation = %s, scale = %s}",
			formatVector(t.Translation()), formatVector(t.Rotation()), formatVector(t.Scale())), nil
	case value.Text, value.Enum:
		return quote(v.AsString()), nil
	case value.Mesh:
		return "", fmt.Errorf("mesh handle %d has no literal form", v.AsMesh())
	default:
		return "", fmt.Errorf("cannot render %s value", v.Type())
	}
}

// formatScalar always produces a float literal, so 2 renders as 2.0.
func formatScalar(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "math.huge"
	case math.IsInf(f, -1):
		return "-math.huge"
	case f == 0:
		// Folds negative zero.
		return "0.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatVector(v xform.Vec3) string {
	return fmt.Sprintf("vector(%s, %s, %s)", formatScalar(v[0]), formatScalar(v[1]), formatScalar(v[2]))
}

// quote renders s as a double-quoted Lua string. Control bytes use decimal
// escapes; other bytes, including UTF-8 sequences, pass through.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&sb, `\%03d`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
