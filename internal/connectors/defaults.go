package connectors

import (
	"github.com/quarry-search/quarry/internal/connectors/box"
	"github.com/quarry-search/quarry/internal/connectors/github"
	"github.com/quarry-search/quarry/internal/connectors/localdir"
)

// RegisterBuiltins registers every built-in source type with the factory.
func RegisterBuiltins(f *Factory) {
	f.Register("box", box.NewFromConnector)
	f.Register("github", github.NewFromConnector)
	f.Register("localdir", localdir.NewFromConnector)
}
