// Package program loads serialized Strict programs: type declarations and
// method bodies written as YAML expression trees, plus the top-level calls
// to run. It stands in for a front-end and does no parsing of Strict source.
package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chazu/strict/ast"
)

var (
	ErrUnknownType         = errors.New("unknown type")
	ErrUnknownName         = errors.New("unknown name")
	ErrUnknownMethod       = errors.New("unknown method")
	ErrMalformedExpression = errors.New("malformed expression")
	ErrDuplicate           = errors.New("duplicate declaration")
	ErrNoEntry             = errors.New("no entry call")
)

// Program is a loaded program file.
type Program struct {
	Path  string
	Types map[string]*ast.Type
	Calls []*Call
}

// Call is a named top-level call, e.g. ArithmeticFunction(10, 5).Calculate("add").
type Call struct {
	Name string
	Call *ast.MethodCall
}

// Load reads and builds the program file at path.
func Load(path string) (*Program, error) {
	if path == "" {
		return nil, fmt.Errorf("program: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("program: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("program: open %s: %w", absPath, err)
	}
	defer file.Close()

	p, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("program: %s: %w", absPath, err)
	}
	p.Path = absPath
	return p, nil
}

// Parse builds a program from YAML bytes.
func Parse(data []byte) (*Program, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one YAML program document from r. Unknown keys are errors.
func Decode(r io.Reader) (*Program, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw programFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty program")
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	return raw.build()
}

// Entry returns the call with the given name, or the first call when name
// is empty.
func (p *Program) Entry(name string) (*ast.MethodCall, error) {
	if len(p.Calls) == 0 {
		return nil, ErrNoEntry
	}
	if name == "" {
		return p.Calls[0].Call, nil
	}
	for _, c := range p.Calls {
		if c.Name == name {
			return c.Call, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoEntry, name)
}

// Type returns the declared or builtin type with the given name, or nil.
func (p *Program) Type(name string) *ast.Type {
	return p.Types[name]
}

// ---------------------------------------------------------------------------
// File format
// ---------------------------------------------------------------------------

type programFile struct {
	Types []typeFile `yaml:"types"`
	Calls []callFile `yaml:"calls"`
}

type typeFile struct {
	Name    string       `yaml:"name"`
	Members []memberFile `yaml:"members"`
	Methods []methodFile `yaml:"methods"`
}

type memberFile struct {
	Name  string    `yaml:"name"`
	Type  string    `yaml:"type"`
	Value *exprFile `yaml:"value"`
}

type methodFile struct {
	Name       string      `yaml:"name"`
	Returns    string      `yaml:"returns"`
	Parameters []paramFile `yaml:"parameters"`
	Body       []exprFile  `yaml:"body"`
}

type paramFile struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type callFile struct {
	Name      string     `yaml:"name"`
	Type      string     `yaml:"type"`
	Members   []exprFile `yaml:"members"`
	Method    string     `yaml:"method"`
	Arguments []exprFile `yaml:"arguments"`
}

// exprFile is one expression node. Exactly one field is set.
type exprFile struct {
	Number     *float64    `yaml:"number"`
	Text       *string     `yaml:"text"`
	Boolean    *bool       `yaml:"boolean"`
	List       *[]exprFile `yaml:"list"`
	Dictionary *dictFile   `yaml:"dictionary"`
	Name       string      `yaml:"name"`
	Enum       *enumFile   `yaml:"enum"`
	Binary     *binaryFile `yaml:"binary"`
	If         *ifFile     `yaml:"if"`
	For        *forFile    `yaml:"for"`
	Constant   *storeFile  `yaml:"constant"`
	Mutable    *storeFile  `yaml:"mutable"`
	Assign     *storeFile  `yaml:"assign"`
	Return     *exprFile   `yaml:"return"`
	Call       *invokeFile `yaml:"call"`
	New        *newFile    `yaml:"new"`
}

type dictFile struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type enumFile struct {
	Type   string `yaml:"type"`
	Member string `yaml:"member"`
}

type binaryFile struct {
	Operator string   `yaml:"op"`
	Left     exprFile `yaml:"left"`
	Right    exprFile `yaml:"right"`
}

type ifFile struct {
	Condition exprFile   `yaml:"condition"`
	Then      []exprFile `yaml:"then"`
	Else      []exprFile `yaml:"else"`
}

type forFile struct {
	Iterable exprFile   `yaml:"in"`
	Body     []exprFile `yaml:"body"`
}

type storeFile struct {
	Name  string   `yaml:"name"`
	Value exprFile `yaml:"value"`
}

// invokeFile calls Method on Receiver, on the type named by Type, or on the
// enclosing type when both are empty.
type invokeFile struct {
	Receiver  *exprFile  `yaml:"receiver"`
	Type      string     `yaml:"type"`
	Method    string     `yaml:"method"`
	Arguments []exprFile `yaml:"arguments"`
}

type newFile struct {
	Type      string     `yaml:"type"`
	Arguments []exprFile `yaml:"arguments"`
}
