package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/settings"
	"github.com/xenitz/cloudsocks/internal/util"
)

// Field indices for the GCP form.
const (
	gcpFieldProject = iota
	gcpFieldZone
	gcpFieldInstance
	gcpFieldCount
)

// Field indices for the AWS form.
const (
	awsFieldRegion = iota
	awsFieldInstanceID
	awsFieldHost
	awsFieldUser
	awsFieldKey
	awsFieldCount
)

// connForm holds the state of the connection parameter form. Row 0 is the
// provider selector; the provider's text fields plus the shared port field
// follow. The form is pre-filled from persisted settings.
type connForm struct {
	provider model.Provider

	gcpFields []textinput.Model
	awsFields []textinput.Model
	portField textinput.Model

	// focusIdx 0 is the provider row; 1..n are inputs for the active provider.
	focusIdx int
	errMsg   string
}

func newForm(cfg settings.Config) *connForm {
	f := &connForm{provider: model.Provider(cfg.Provider)}
	if f.provider != model.ProviderAWS {
		f.provider = model.ProviderGCP
	}

	mk := func(placeholder, value string, limit int) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = limit
		ti.Width = 40
		ti.SetValue(value)
		return ti
	}

	f.gcpFields = make([]textinput.Model, gcpFieldCount)
	f.gcpFields[gcpFieldProject] = mk("my-project (required)", cfg.GCP.Project, 128)
	f.gcpFields[gcpFieldZone] = mk("europe-west1-b (required)", cfg.GCP.Zone, 64)
	f.gcpFields[gcpFieldInstance] = mk("vm-name (required)", cfg.GCP.Instance, 128)

	f.awsFields = make([]textinput.Model, awsFieldCount)
	f.awsFields[awsFieldRegion] = mk("eu-west-1", cfg.AWS.Region, 32)
	f.awsFields[awsFieldInstanceID] = mk("i-0123456789abcdef0", cfg.AWS.InstanceID, 64)
	f.awsFields[awsFieldHost] = mk("direct address (skips resolution)", cfg.AWS.Host, 256)
	f.awsFields[awsFieldUser] = mk("ec2-user (required)", cfg.AWS.User, 64)
	f.awsFields[awsFieldKey] = mk("~/.ssh/key.pem (optional)", cfg.AWS.KeyFile, 256)

	f.portField = mk(strconv.Itoa(util.DefaultSocksPort), strconv.Itoa(cfg.Proxy.Port), 6)

	return f
}

func (f *connForm) activeFields() []textinput.Model {
	if f.provider == model.ProviderAWS {
		return f.awsFields
	}
	return f.gcpFields
}

// rowCount is the provider row plus provider fields plus the port field.
func (f *connForm) rowCount() int {
	return 1 + len(f.activeFields()) + 1
}

func (f *connForm) focusedInput() *textinput.Model {
	if f.focusIdx == 0 {
		return nil
	}
	fields := f.activeFields()
	if f.focusIdx-1 < len(fields) {
		return &fields[f.focusIdx-1]
	}
	return &f.portField
}

func (f *connForm) setFocus(idx int) tea.Cmd {
	if in := f.focusedInput(); in != nil {
		in.Blur()
	}
	f.focusIdx = idx
	if in := f.focusedInput(); in != nil {
		in.Focus()
		return in.Cursor.BlinkCmd()
	}
	return nil
}

// update processes a key message and returns a request when the form is
// submitted with valid values.
func (f *connForm) update(msg tea.KeyMsg) (*model.TunnelRequest, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return nil, f.setFocus((f.focusIdx + 1) % f.rowCount())
	case "shift+tab", "up":
		return nil, f.setFocus((f.focusIdx - 1 + f.rowCount()) % f.rowCount())
	case "enter":
		req, err := f.buildRequest()
		if err != nil {
			f.errMsg = err.Error()
			return nil, nil
		}
		return &req, nil
	}

	if f.focusIdx == 0 {
		switch msg.String() {
		case "left", "right", "h", "l", " ":
			f.toggleProvider()
			f.errMsg = ""
		}
		return nil, nil
	}

	in := f.focusedInput()
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	f.errMsg = ""
	return nil, cmd
}

func (f *connForm) toggleProvider() {
	if f.provider == model.ProviderGCP {
		f.provider = model.ProviderAWS
	} else {
		f.provider = model.ProviderGCP
	}
	// Focus stays on the provider row; field indices change meaning.
	f.focusIdx = 0
}

func (f *connForm) buildRequest() (model.TunnelRequest, error) {
	port := util.DefaultSocksPort
	if s := strings.TrimSpace(f.portField.Value()); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			return model.TunnelRequest{}, fmt.Errorf("port must be a number")
		}
		if err := util.ValidatePort(p); err != nil {
			return model.TunnelRequest{}, err
		}
		port = p
	}

	req := model.TunnelRequest{Provider: f.provider, SocksPort: port}
	switch f.provider {
	case model.ProviderGCP:
		req.Project = strings.TrimSpace(f.gcpFields[gcpFieldProject].Value())
		req.Zone = strings.TrimSpace(f.gcpFields[gcpFieldZone].Value())
		req.Instance = strings.TrimSpace(f.gcpFields[gcpFieldInstance].Value())
	case model.ProviderAWS:
		req.Region = strings.TrimSpace(f.awsFields[awsFieldRegion].Value())
		req.InstanceID = strings.TrimSpace(f.awsFields[awsFieldInstanceID].Value())
		req.Host = strings.TrimSpace(f.awsFields[awsFieldHost].Value())
		req.User = strings.TrimSpace(f.awsFields[awsFieldUser].Value())
		req.KeyFile = strings.TrimSpace(f.awsFields[awsFieldKey].Value())
	}
	if err := req.Validate(); err != nil {
		return model.TunnelRequest{}, err
	}
	return req, nil
}

func (f *connForm) view(renderPanel func(string, string, int, lipgloss.Color) string, width int) string {
	var b strings.Builder

	cursor := "  "
	if f.focusIdx == 0 {
		cursor = "> "
	}
	gcpMark, awsMark := "x", " "
	if f.provider == model.ProviderAWS {
		gcpMark, awsMark = " ", "x"
	}
	b.WriteString(fmt.Sprintf("%s%-14s (%s) GCP  (%s) AWS\n", cursor, "Provider:", gcpMark, awsMark))

	var labels []string
	if f.provider == model.ProviderAWS {
		labels = []string{"Region:", "Instance ID:", "Host:", "User:", "Key file:"}
	} else {
		labels = []string{"Project:", "Zone:", "Instance:"}
	}
	fields := f.activeFields()
	for i, label := range labels {
		cursor := "  "
		if f.focusIdx == i+1 {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-14s %s\n", cursor, label, fields[i].View()))
	}

	cursor = "  "
	if f.focusIdx == len(fields)+1 {
		cursor = "> "
	}
	b.WriteString(fmt.Sprintf("%s%-14s %s\n", cursor, "SOCKS port:", f.portField.View()))

	if f.errMsg != "" {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString("\n" + errStyle.Render("Error: "+f.errMsg) + "\n")
	}
	b.WriteString("\nTab/Shift-Tab navigate | Space toggles provider | Enter connect | Esc quit")

	return renderPanel("New Tunnel", b.String(), width, lipgloss.Color("214"))
}
