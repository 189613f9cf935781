package msgcat

import (
    "embed"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "text/template"

    yaml "gopkg.in/yaml.v3"
)

//go:embed messages.*.yaml
var defaultFiles embed.FS

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en"

// Catalog holds UI and result strings keyed by dotted paths ("result.checkmate").
// Values are text/template sources; missing data keys are errors.
type Catalog struct {
    mu     sync.RWMutex
    locale string
    data   map[string]string
}

// Locales lists the embedded locales.
func Locales() []string {
    entries, err := fs.Glob(defaultFiles, "messages.*.yaml")
    if err != nil {
        return nil
    }
    out := make([]string, 0, len(entries))
    for _, e := range entries {
        out = append(out, strings.TrimSuffix(strings.TrimPrefix(e, "messages."), ".yaml"))
    }
    sort.Strings(out)
    return out
}

// New loads English defaults, layers the requested locale on top, then applies overrides from dir.
func New(locale, overrideDir string) (*Catalog, error) {
    locale = strings.ToLower(strings.TrimSpace(locale))
    if locale == "" {
        locale = DefaultLocale
    }
    c := &Catalog{locale: locale, data: make(map[string]string)}

    if err := c.loadEmbedded(DefaultLocale); err != nil {
        return nil, err
    }
    if locale != DefaultLocale {
        if err := c.loadEmbedded(locale); err != nil {
            return nil, err
        }
    }
    if strings.TrimSpace(overrideDir) != "" {
        if err := c.applyDir(overrideDir); err != nil {
            return nil, err
        }
    }
    return c, nil
}

func (c *Catalog) Locale() string { return c.locale }

func (c *Catalog) loadEmbedded(locale string) error {
    name := "messages." + locale + ".yaml"
    raw, err := fs.ReadFile(defaultFiles, name)
    if err != nil {
        return fmt.Errorf("unknown locale %q: %w", locale, err)
    }
    return c.applyYAML(raw)
}

func (c *Catalog) applyDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return fmt.Errorf("read messages dir: %w", err)
    }
    files := make([]string, 0, len(entries))
    for _, e := range entries {
        if e.IsDir() { continue }
        n := e.Name()
        ext := strings.ToLower(filepath.Ext(n))
        if ext == ".yaml" || ext == ".yml" { files = append(files, n) }
    }
    sort.Strings(files)
    // the same key in two override files is ambiguous
    seen := make(map[string]string)
    for _, name := range files {
        b, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil { return fmt.Errorf("read %s: %w", name, err) }
        flat, err := parseYAMLToFlat(b)
        if err != nil { return fmt.Errorf("parse %s: %w", name, err) }
        for k := range flat {
            if prev, ok := seen[k]; ok {
                return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
            }
            seen[k] = name
        }
        c.mu.Lock()
        for k, v := range flat { c.data[k] = v }
        c.mu.Unlock()
    }
    return nil
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
    var m map[string]any
    if err := yaml.Unmarshal(b, &m); err != nil {
        return nil, err
    }
    flat := make(map[string]string)
    if err := flattenStrings(m, "", flat); err != nil {
        return nil, err
    }
    return flat, nil
}

func (c *Catalog) applyYAML(b []byte) error {
    flat, err := parseYAMLToFlat(b)
    if err != nil { return err }
    c.mu.Lock()
    for k, v := range flat {
        c.data[k] = v
    }
    c.mu.Unlock()
    return nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
    switch v := src.(type) {
    case map[string]any:
        for k, vv := range v {
            key := k
            if prefix != "" { key = prefix + "." + k }
            if err := flattenStrings(vv, key, out); err != nil { return err }
        }
        return nil
    case string:
        if prefix == "" { return errors.New("string value without key prefix") }
        out[prefix] = v
        return nil
    case nil:
        return nil
    default:
        return fmt.Errorf("unsupported value at %s: %T", prefix, v)
    }
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
    c.mu.RLock()
    tpl, ok := c.data[strings.TrimSpace(key)]
    c.mu.RUnlock()
    if !ok || strings.TrimSpace(tpl) == "" {
        return "", fmt.Errorf("template not found: %s", key)
    }
    t, err := template.New(key).Option("missingkey=error").Parse(tpl)
    if err != nil { return "", err }
    var b strings.Builder
    if err := t.Execute(&b, data); err != nil { return "", err }
    return b.String(), nil
}

// RenderOr is Render with a fallback for keys that are missing or fail to execute.
func (c *Catalog) RenderOr(key string, data any, fallback string) string {
    if c == nil {
        return fallback
    }
    s, err := c.Render(key, data)
    if err != nil {
        return fallback
    }
    return s
}
