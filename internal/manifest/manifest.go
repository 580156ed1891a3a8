// Package manifest reads model3.json settings files.
//
// A manifest lists the files that make up one model: the moc blob, its
// textures in bind order, optional pose and physics definitions, named
// motion groups and expressions, and the hit areas used for tap handling.
// All paths are returned relative to the asset root.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"github.com/Faultbox/puppet/internal/assets"
)

var (
	// ErrNotFound is returned when no manifest exists for a model name.
	ErrNotFound = errors.New("manifest not found")

	// ErrMalformed is returned when a manifest cannot be parsed or lacks
	// required references.
	ErrMalformed = errors.New("manifest malformed")
)

// Manifest is the parsed reference list of one model.
type Manifest struct {
	Name        string
	Dir         string
	Moc         string
	Pose        string // empty when absent
	Physics     string // empty when absent
	Textures    []string
	Motions     []MotionGroup
	Expressions []Expression
	HitAreas    []HitArea
}

// MotionGroup is a named list of interchangeable clips.
type MotionGroup struct {
	Name  string
	Clips []string
}

// Expression is a named expression file.
type Expression struct {
	Name string
	File string
}

// HitArea maps a drawable ID to a logical area name such as "Body".
type HitArea struct {
	ID   string
	Name string
}

// Source resolves a model name to its manifest.
type Source interface {
	Manifest(name string) (*Manifest, error)
}

// Loader reads manifests from "<name>/<name>.model3.json".
type Loader struct {
	assets assets.Provider
}

// NewLoader creates a loader over an asset provider.
func NewLoader(p assets.Provider) *Loader {
	return &Loader{assets: p}
}

// Path returns the settings file location for a model name.
func Path(name string) string {
	return path.Join(name, name+".model3.json")
}

// Manifest loads and parses the manifest for name.
func (l *Loader) Manifest(name string) (*Manifest, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("model %q: %w", name, ErrNotFound)
	}

	data, err := l.assets.Load(Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("model %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("model %q: %w", name, err)
	}

	return Parse(name, name, data)
}

// Parse decodes a settings file. Comments and trailing commas are
// accepted. dir is the directory the file references are relative to.
func Parse(name, dir string, data []byte) (*Manifest, error) {
	js := jsonc.ToJSON(data)
	if !gjson.ValidBytes(js) {
		return nil, fmt.Errorf("model %q: invalid JSON: %w", name, ErrMalformed)
	}
	root := gjson.ParseBytes(js)
	refs := root.Get("FileReferences")
	if !refs.IsObject() {
		return nil, fmt.Errorf("model %q: missing FileReferences: %w", name, ErrMalformed)
	}

	m := &Manifest{Name: name, Dir: dir}
	resolve := func(p string) string { return path.Join(dir, p) }

	moc := refs.Get("Moc")
	if moc.Type != gjson.String || moc.Str == "" {
		return nil, fmt.Errorf("model %q: missing Moc: %w", name, ErrMalformed)
	}
	m.Moc = resolve(moc.Str)

	if v := refs.Get("Pose"); v.Type == gjson.String && v.Str != "" {
		m.Pose = resolve(v.Str)
	}
	if v := refs.Get("Physics"); v.Type == gjson.String && v.Str != "" {
		m.Physics = resolve(v.Str)
	}

	textures := refs.Get("Textures")
	if !textures.IsArray() {
		return nil, fmt.Errorf("model %q: missing Textures: %w", name, ErrMalformed)
	}
	for i, t := range textures.Array() {
		if t.Type != gjson.String || t.Str == "" {
			return nil, fmt.Errorf("model %q: texture %d is not a path: %w", name, i, ErrMalformed)
		}
		m.Textures = append(m.Textures, resolve(t.Str))
	}

	if motions := refs.Get("Motions"); motions.Exists() {
		if !motions.IsObject() {
			return nil, fmt.Errorf("model %q: Motions is not an object: %w", name, ErrMalformed)
		}
		var err error
		// ForEach walks keys in document order, which is the group order.
		motions.ForEach(func(key, value gjson.Result) bool {
			group := MotionGroup{Name: key.String()}
			if !value.IsArray() {
				err = fmt.Errorf("model %q: motion group %q is not an array: %w", name, group.Name, ErrMalformed)
				return false
			}
			for _, entry := range value.Array() {
				if file := entry.Get("File").String(); file != "" {
					group.Clips = append(group.Clips, resolve(file))
				}
			}
			m.Motions = append(m.Motions, group)
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	if exprs := refs.Get("Expressions"); exprs.Exists() {
		if !exprs.IsArray() {
			return nil, fmt.Errorf("model %q: Expressions is not an array: %w", name, ErrMalformed)
		}
		for _, e := range exprs.Array() {
			ename, file := e.Get("Name").String(), e.Get("File").String()
			if ename == "" || file == "" {
				continue
			}
			m.Expressions = append(m.Expressions, Expression{Name: ename, File: resolve(file)})
		}
	}

	for _, h := range root.Get("HitAreas").Array() {
		id, hname := h.Get("Id").String(), h.Get("Name").String()
		if id == "" {
			continue
		}
		m.HitAreas = append(m.HitAreas, HitArea{ID: id, Name: hname})
	}

	return m, nil
}
