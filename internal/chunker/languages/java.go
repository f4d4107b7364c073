package languages

import (
	"github.com/smacker/go-tree-sitter/java"

	"codescout/internal/chunker"
)

func RegisterJava(r *chunker.Registry) {
	r.Register("java", &chunker.LanguageSpec{
		Language: java.GetLanguage(),
		Query: `
			(class_declaration name: (identifier) @name) @class
			(interface_declaration name: (identifier) @name) @class
			(enum_declaration name: (identifier) @name) @class
			(method_declaration name: (identifier) @name) @method
			(constructor_declaration name: (identifier) @name) @method
		`,
		Extensions: []string{"java"},
	})
}
