package jsx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/render/assets"
	"github.com/jonwraymond/pinog/render/scene"
)

// MaxDepth bounds element nesting, including function component calls.
const MaxDepth = 256

const fragmentTag = "#fragment"

// Options configures Render.
type Options struct {
	// BaseURL resolves root-relative asset URLs.
	BaseURL string

	// Timeout bounds transpiled evaluation and tree expansion.
	// Default: 5s
	Timeout time.Duration
}

// Config is the module's optional exported config.
type Config struct {
	Fonts []assets.FontSpec `json:"fonts"`
}

// Module is an evaluated UI module rendered with a set of props.
type Module struct {
	Root   *Node
	Config Config
}

// element is what createElement returns to script code.
type element struct {
	tag      string
	fn       goja.Callable
	props    map[string]goja.Value
	style    map[string]any
	attrs    map[string]string
	children []goja.Value
}

type evaluator struct {
	vm      *goja.Runtime
	baseURL string
}

// Render transpiles src, evaluates it, calls its default export with props
// and expands the result into a Node tree.
func Render(ctx context.Context, src string, props map[string]any, opts Options) (*Module, error) {
	code, err := Transpile(src)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	e := &evaluator{vm: goja.New(), baseURL: strings.TrimSuffix(opts.BaseURL, "/")}
	stop := context.AfterFunc(ctx, func() { e.vm.Interrupt(ctx.Err()) })
	defer stop()

	mod, err := e.run(code, props)
	if err != nil {
		return nil, e.mapError(ctx, err)
	}
	return mod, nil
}

func (e *evaluator) run(code string, props map[string]any) (*Module, error) {
	vm := e.vm
	react := vm.NewObject()
	if err := react.Set("createElement", e.createElement); err != nil {
		return nil, err
	}
	if err := react.Set("Fragment", fragmentTag); err != nil {
		return nil, err
	}
	icons := vm.NewObject()
	for _, name := range scene.IconNames() {
		if err := icons.Set(name, e.icon(name)); err != nil {
			return nil, err
		}
		if err := vm.Set(name, e.icon(name)); err != nil {
			return nil, err
		}
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	globals := map[string]any{
		"React":   react,
		"module":  module,
		"exports": exports,
		"require": func(name string) goja.Value {
			switch name {
			case "react":
				return react
			case "lucide-react":
				return icons
			}
			return goja.Null()
		},
	}
	for k, v := range globals {
		if err := vm.Set(k, v); err != nil {
			return nil, err
		}
	}

	if _, err := vm.RunScript("widget.js", code); err != nil {
		return nil, err
	}

	exported := module.Get("exports")
	var component goja.Callable
	var cfgVal goja.Value
	if obj, ok := exported.(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(obj.Get("default")); ok {
			component = fn
		} else if fn, ok := goja.AssertFunction(obj); ok {
			component = fn
		}
		cfgVal = obj.Get("config")
	}
	if component == nil {
		return nil, ErrNoDefaultExport
	}

	mod := &Module{}
	if cfgVal != nil && !goja.IsUndefined(cfgVal) && !goja.IsNull(cfgVal) {
		if err := e.decode(cfgVal, &mod.Config); err != nil {
			return nil, fmt.Errorf("%w: config: %w", ErrEvaluate, err)
		}
	}

	jsProps, err := e.parse(props)
	if err != nil {
		return nil, err
	}
	out, err := component(goja.Undefined(), jsProps)
	if err != nil {
		return nil, err
	}
	nodes, err := e.resolve(out.Export(), 0, nil)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 1:
		mod.Root = nodes[0]
		if mod.Root.IsText() {
			mod.Root = &Node{Tag: "div", Style: map[string]any{"display": "flex"}, Children: nodes}
		}
	default:
		mod.Root = &Node{Tag: "div", Style: map[string]any{"display": "flex"}, Children: nodes}
	}
	return mod, nil
}

func (e *evaluator) createElement(call goja.FunctionCall) goja.Value {
	typ := call.Argument(0)
	el := &element{props: map[string]goja.Value{}}
	if len(call.Arguments) > 2 {
		el.children = append([]goja.Value(nil), call.Arguments[2:]...)
	}
	if obj, ok := call.Argument(1).(*goja.Object); ok {
		for _, k := range obj.Keys() {
			el.props[k] = obj.Get(k)
		}
	}
	if c, ok := el.props["children"]; ok && len(el.children) == 0 && !goja.IsUndefined(c) {
		el.children = []goja.Value{c}
	}
	delete(el.props, "children")

	if fn, ok := goja.AssertFunction(typ); ok {
		el.fn = fn
		return e.vm.ToValue(el)
	}
	el.tag = typ.String()
	if el.tag == fragmentTag {
		return e.vm.ToValue(el)
	}

	el.attrs = map[string]string{}
	for k, v := range el.props {
		if k == "style" || k == "key" || k == "ref" {
			continue
		}
		switch x := v.Export().(type) {
		case string:
			el.attrs[k] = x
		case int64, float64, bool:
			if k != "src" {
				el.attrs[k] = fmt.Sprint(x)
			}
		}
	}
	if s, ok := el.props["style"].(*goja.Object); ok {
		if m, ok := s.Export().(map[string]any); ok {
			el.style = m
		}
	}
	el.style = intercept(el.tag, el.style, el.attrs, e.baseURL)
	return e.vm.ToValue(el)
}

// icon returns a component drawing a named outline.
func (e *evaluator) icon(name string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		size, color, stroke := float64(24), "currentColor", float64(2)
		if obj, ok := call.Argument(0).(*goja.Object); ok {
			if v := obj.Get("size"); v != nil && !goja.IsUndefined(v) {
				size = v.ToFloat()
			}
			if v := obj.Get("color"); v != nil && !goja.IsUndefined(v) {
				color = v.String()
			}
			if v := obj.Get("strokeWidth"); v != nil && !goja.IsUndefined(v) {
				stroke = v.ToFloat()
			}
		}
		return e.vm.ToValue(&element{
			tag:   "icon",
			attrs: map[string]string{"name": name},
			style: map[string]any{
				"width":       size,
				"height":      size,
				"color":       color,
				"strokeWidth": stroke,
			},
		})
	}
}

func (e *evaluator) resolve(v any, depth int, out []*Node) ([]*Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch x := v.(type) {
	case nil, bool:
		return out, nil
	case string:
		if x == "" {
			return out, nil
		}
		return append(out, &Node{Text: x}), nil
	case int64:
		return append(out, &Node{Text: strconv.FormatInt(x, 10)}), nil
	case float64:
		return append(out, &Node{Text: strconv.FormatFloat(x, 'f', -1, 64)}), nil
	case []any:
		var err error
		for _, item := range x {
			if out, err = e.resolve(item, depth+1, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	case *element:
		return e.resolveElement(x, depth, out)
	case func(goja.FunctionCall) goja.Value:
		return out, nil
	default:
		return nil, fmt.Errorf("%w: objects are not valid as children (%T)", ErrEvaluate, v)
	}
}

func (e *evaluator) resolveElement(el *element, depth int, out []*Node) ([]*Node, error) {
	if el.fn != nil {
		props := e.vm.NewObject()
		for k, v := range el.props {
			if err := props.Set(k, v); err != nil {
				return nil, err
			}
		}
		switch len(el.children) {
		case 0:
		case 1:
			_ = props.Set("children", el.children[0])
		default:
			items := make([]any, len(el.children))
			for i, c := range el.children {
				items[i] = c
			}
			_ = props.Set("children", e.vm.NewArray(items...))
		}
		rendered, err := el.fn(goja.Undefined(), props)
		if err != nil {
			return nil, err
		}
		return e.resolve(rendered.Export(), depth+1, out)
	}

	children := make([]any, len(el.children))
	for i, c := range el.children {
		children[i] = c.Export()
	}
	if el.tag == fragmentTag {
		return e.resolve(children, depth+1, out)
	}
	node := &Node{Tag: el.tag, Style: el.style, Attrs: el.attrs}
	var err error
	if node.Children, err = e.resolve(children, depth+1, nil); err != nil {
		return nil, err
	}
	return append(out, node), nil
}

// parse converts props into plain script objects.
func (e *evaluator) parse(props map[string]any) (goja.Value, error) {
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("jsx: encode props: %w", err)
	}
	parse, _ := goja.AssertFunction(e.vm.Get("JSON").ToObject(e.vm).Get("parse"))
	return parse(goja.Undefined(), e.vm.ToValue(string(raw)))
}

func (e *evaluator) decode(v goja.Value, into any) error {
	stringify, _ := goja.AssertFunction(e.vm.Get("JSON").ToObject(e.vm).Get("stringify"))
	s, err := stringify(goja.Undefined(), v)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(s.String()), into)
}

func (e *evaluator) mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return fmt.Errorf("%w: %s", ErrEvaluate, ex.Value().String())
	}
	return err
}
