package luahost

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/meshweave/internal/value"
	lua "github.com/yuin/gopher-lua"
)

// luaVector implements the global vector(x, y, z) constructor.
func luaVector(L *lua.LState) int {
	x := L.CheckNumber(1)
	y := L.CheckNumber(2)
	z := L.CheckNumber(3)
	L.Push(newVector(L, float64(x), float64(y), float64(z)))
	return 1
}

func newVector(L *lua.LState, x, y, z float64) *lua.LTable {
	tbl := L.CreateTable(0, 3)
	tbl.RawSetString("x", lua.LNumber(x))
	tbl.RawSetString("y", lua.LNumber(y))
	tbl.RawSetString("z", lua.LNumber(z))
	return tbl
}

func isVector(v lua.LValue) bool {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return false
	}
	for _, k := range []string{"x", "y", "z"} {
		if _, ok := tbl.RawGetString(k).(lua.LNumber); !ok {
			return false
		}
	}
	return true
}

// render formats a Lua value for traces.
func render(v lua.LValue) string {
	switch lv := v.(type) {
	case lua.LNumber:
		return strconv.FormatFloat(float64(lv), 'g', -1, 64)
	case lua.LString:
		return strconv.Quote(string(lv))
	case lua.LBool:
		return strconv.FormatBool(bool(lv))
	case *lua.LUserData:
		if h, ok := lv.Value.(value.MeshHandle); ok {
			return fmt.Sprintf("mesh#%d", h)
		}
		return "userdata"
	case *lua.LTable:
		if isVector(lv) {
			return fmt.Sprintf("vector(%s, %s, %s)",
				render(lv.RawGetString("x")), render(lv.RawGetString("y")), render(lv.RawGetString("z")))
		}
		if t := lv.RawGetString("translation"); t != lua.LNil {
			return fmt.Sprintf("transform(%s, %s, %s)",
				render(t), render(lv.RawGetString("rotation")), render(lv.RawGetString("scale")))
		}
		parts := make([]string, 0, lv.Len())
		for i := 1; i <= lv.Len(); i++ {
			parts = append(parts, render(lv.RawGetInt(i)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if v == lua.LNil {
		return "nil"
	}
	return v.String()
}
