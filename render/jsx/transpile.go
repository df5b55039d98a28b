package jsx

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Transpile compiles JSX/TSX source to a CommonJS script whose JSX calls
// React.createElement.
func Transpile(src string) (string, error) {
	res := api.Transform(src, api.TransformOptions{
		Loader:      api.LoaderTSX,
		Format:      api.FormatCommonJS,
		Target:      api.ES2017,
		JSX:         api.JSXTransform,
		JSXFactory:  "React.createElement",
		JSXFragment: "React.Fragment",
		Sourcefile:  "widget.tsx",
		LogLevel:    api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		msgs := make([]string, 0, len(res.Errors))
		for _, m := range res.Errors {
			if m.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			} else {
				msgs = append(msgs, m.Text)
			}
		}
		return "", fmt.Errorf("%w: %s", ErrTranspile, strings.Join(msgs, "; "))
	}
	return string(res.Code), nil
}
