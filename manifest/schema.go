package manifest

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// schemaSource constrains a decoded manifest after defaults are applied.
const schemaSource = `
project: {
	name:    string
	version: "" | =~"^[0-9]+(\\.[0-9]+)*([-+][0-9A-Za-z.-]+)?$"
}
source: {
	dirs: [...(string & !="")]
	extension: =~"^\\.[0-9A-Za-z_-]+$"
	entry: string
}
cache: {
	enabled: bool
	path:    string & !=""
}
log: {
	verbosity: int & >=-4 & <=4
	file:      string
}
lsp: name: string & !=""
dependencies?: [string]: {
	git?:  string
	tag?:  string
	path?: string
}
`

// A cue.Context is not safe for concurrent use; schemaMu guards it.
var (
	schemaMu  sync.Mutex
	schemaCtx *cue.Context
	schema    cue.Value
)

func loadSchema() (*cue.Context, cue.Value) {
	if schemaCtx == nil {
		schemaCtx = cuecontext.New()
		schema = schemaCtx.CompileString(schemaSource, cue.Filename("chirp.toml.cue"))
	}
	return schemaCtx, schema
}

// Validate checks m against the manifest schema and the rules the schema
// cannot express. The error names the offending field.
func Validate(m *Manifest) error {
	schemaMu.Lock()
	ctx, s := loadSchema()
	err := s.Err()
	if err == nil {
		err = s.Unify(ctx.Encode(m)).Validate(cue.Concrete(true))
		if err != nil {
			err = fmt.Errorf("invalid manifest: %s", cueerrors.Details(err, nil))
		}
	} else {
		err = fmt.Errorf("manifest schema: %w", err)
	}
	schemaMu.Unlock()
	if err != nil {
		return err
	}

	for name, dep := range m.Dependencies {
		switch {
		case dep.Git == "" && dep.Path == "":
			return fmt.Errorf("invalid manifest: dependency %q has no git or path specified", name)
		case dep.Git != "" && dep.Path != "":
			return fmt.Errorf("invalid manifest: dependency %q has both git and path", name)
		case dep.Tag != "" && dep.Git == "":
			return fmt.Errorf("invalid manifest: dependency %q sets tag without git", name)
		}
	}
	return nil
}
