package languages

import (
	"github.com/smacker/go-tree-sitter/golang"

	"codescout/internal/chunker"
)

func RegisterGo(r *chunker.Registry) {
	r.Register("go", &chunker.LanguageSpec{
		Language: golang.GetLanguage(),
		Query: `
			(type_declaration (type_spec name: (type_identifier) @name)) @class
			(function_declaration name: (identifier) @name) @method
			(method_declaration name: (field_identifier) @name) @method
		`,
		Extensions: []string{"go"},
	})
}
