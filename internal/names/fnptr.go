package names

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bindforge/internal/cast"
)

// FunctionPointerName synthesizes the name of an anonymous function pointer
// type from its signature: void (*)(int, char*) becomes FnPtr_Int_CharPtr_Void.
func FunctionPointerName(ret *cast.TypeRef, params []cast.Param) string {
	parts := make([]string, 0, len(params)+2)
	parts = append(parts, "FnPtr")
	for i := range params {
		parts = append(parts, typePart(&params[i].Type))
	}
	parts = append(parts, typePart(ret))
	return strings.Join(parts, "_")
}

func typePart(t *cast.TypeRef) string {
	spelling := strings.NewReplacer("*", " ptr ", "[", " ", "]", " ", "_", " ").Replace(t.Spelling())
	titled := cases.Title(language.English, cases.NoLower).String(strings.ToLower(spelling))
	var b strings.Builder
	for _, r := range titled {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Void"
	}
	return b.String()
}
