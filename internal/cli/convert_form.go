package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"imgbatch/internal/model"
	"imgbatch/internal/settings"
)

type formFieldKind int

const (
	formFieldString formFieldKind = iota
	formFieldBool
	formFieldSelect
)

type formField struct {
	Key     string
	Label   string
	Help    string
	Kind    formFieldKind
	Value   string
	Options []string
}

type convertForm struct {
	Fields []formField
	Index  int
	Input  textinput.Model
	Error  string
}

func newConvertForm(st settings.Settings, width int) *convertForm {
	formats := make([]string, 0, len(model.AllFormats()))
	for _, f := range model.AllFormats() {
		formats = append(formats, string(f))
	}

	f := &convertForm{
		Fields: []formField{
			{Key: "source_dir", Label: "Source Folder", Help: "Folder holding the images to convert", Kind: formFieldString, Value: st.SourceDir},
			{Key: "dest_dir", Label: "Destination Folder", Help: "Converted images are written here; existing names are skipped", Kind: formFieldString, Value: st.DestDir},
			{Key: "format", Label: "Target Format", Help: "left/right/space cycles the format", Kind: formFieldSelect, Value: st.Format, Options: formats},
			{Key: "delete_originals", Label: "Delete Originals", Help: "Remove each source file once it converts successfully", Kind: formFieldBool, Value: boolToYN(st.DeleteOriginals)},
		},
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 4096
	input.Width = clampInt(width-8, 20, 120)
	f.Input = input
	f.loadFieldIntoInput()
	f.Input.Focus()
	return f
}

func (f *convertForm) resize(width int) {
	if f == nil {
		return
	}
	f.Input.Width = clampInt(width-8, 20, 120)
}

func (f *convertForm) currentField() formField {
	if len(f.Fields) == 0 {
		return formField{}
	}
	if f.Index < 0 {
		f.Index = 0
	}
	if f.Index >= len(f.Fields) {
		f.Index = len(f.Fields) - 1
	}
	return f.Fields[f.Index]
}

func (f *convertForm) commitInput() {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	if f.Fields[f.Index].Kind != formFieldString {
		return
	}
	f.Fields[f.Index].Value = strings.TrimSpace(f.Input.Value())
}

func (f *convertForm) loadFieldIntoInput() {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	f.Input.SetValue(f.Fields[f.Index].Value)
	f.Input.CursorEnd()
}

func (f *convertForm) toggleBoolField() {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	curr := f.Fields[f.Index]
	if curr.Kind != formFieldBool {
		return
	}
	v, ok := parseBool(curr.Value)
	if !ok {
		v = false
	}
	curr.Value = boolToYN(!v)
	f.Fields[f.Index] = curr
	f.loadFieldIntoInput()
}

func (f *convertForm) setBoolField(v bool) {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	curr := f.Fields[f.Index]
	if curr.Kind != formFieldBool {
		return
	}
	curr.Value = boolToYN(v)
	f.Fields[f.Index] = curr
	f.loadFieldIntoInput()
}

// stepSelectOption moves the current select field by delta, wrapping around.
func (f *convertForm) stepSelectOption(delta int) {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	curr := f.Fields[f.Index]
	if curr.Kind != formFieldSelect || len(curr.Options) == 0 {
		return
	}
	current := strings.TrimSpace(curr.Value)
	pos := 0
	for i, opt := range curr.Options {
		if strings.EqualFold(opt, current) {
			pos = i
			break
		}
	}
	n := len(curr.Options)
	pos = ((pos+delta)%n + n) % n
	curr.Value = curr.Options[pos]
	f.Fields[f.Index] = curr
	f.loadFieldIntoInput()
}

// applyTo copies the form values onto st. Empty folders are left for the
// runner to reject.
func (f *convertForm) applyTo(st settings.Settings) (settings.Settings, error) {
	next := st
	for _, field := range f.Fields {
		v := strings.TrimSpace(field.Value)
		if field.Kind == formFieldBool {
			b, ok := parseBool(v)
			if !ok {
				return st, fmt.Errorf("%s must be y or n", strings.ToLower(field.Label))
			}
			v = fmt.Sprint(b)
		}
		if err := next.Set(field.Key, v); err != nil {
			return st, err
		}
	}
	return next, nil
}
