package lang

import (
	"github.com/smacker/go-tree-sitter/elm"
)

func init() {
	Languages["elm"] = &Language{
		Name:       "elm",
		Extensions: []string{".elm"},
		lang:       elm.GetLanguage(),
	}
}
