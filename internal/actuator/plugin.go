package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/ayusman/pinchctl/internal/plugin"
)

// pluginSetter sends set-* requests to a plugin. Plugins apply whole
// units, so a level that rounds to the last applied one is not resent.
type pluginSetter struct {
	exec    *plugin.Executor
	plugin  *plugin.Plugin
	action  string
	channel string

	mu      sync.Mutex
	applied bool
	last    float64
}

func (p *pluginSetter) SetLevel(ctx context.Context, level float64) error {
	rounded := math.Round(level)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.applied && rounded == p.last {
		return nil
	}

	params, err := json.Marshal(plugin.LevelParams{Level: level})
	if err != nil {
		return err
	}
	if _, err := p.exec.Call(ctx, p.plugin, &plugin.Request{
		Action:  p.action,
		Channel: p.channel,
		Params:  params,
	}); err != nil {
		p.applied = false
		return err
	}
	p.applied, p.last = true, rounded
	return nil
}

// PluginVolume is a Volume backed by an actuator plugin.
type PluginVolume struct {
	pluginSetter
}

// PluginBrightness is a Brightness backed by an actuator plugin.
type PluginBrightness struct {
	pluginSetter
}

// lookup returns the named plugin, or the first one declaring action.
func lookup(mgr *plugin.Manager, name, action string) (*plugin.Plugin, error) {
	var (
		p   *plugin.Plugin
		err error
	)
	if name != "" {
		p, err = mgr.Get(name)
	} else {
		p, err = mgr.Find(action)
	}
	if err != nil {
		return nil, Unavailable(action, err)
	}
	if !p.Supports(action) {
		return nil, Unavailable(action, fmt.Errorf("plugin %s does not declare %s", p.Manifest.Name, action))
	}
	return p, nil
}

// NewPluginVolume binds the volume channel to a plugin declaring set-volume
// and volume-range. An empty name picks the first capable plugin.
func NewPluginVolume(mgr *plugin.Manager, exec *plugin.Executor, name string) (*PluginVolume, error) {
	p, err := lookup(mgr, name, plugin.ActionSetVolume)
	if err != nil {
		return nil, err
	}
	if !p.Supports(plugin.ActionVolumeRange) {
		return nil, Unavailable(plugin.ActionVolumeRange, fmt.Errorf("plugin %s does not declare %s", p.Manifest.Name, plugin.ActionVolumeRange))
	}
	return &PluginVolume{pluginSetter{exec: exec, plugin: p, action: plugin.ActionSetVolume, channel: "volume"}}, nil
}

// Range asks the plugin for the accepted volume range.
func (v *PluginVolume) Range(ctx context.Context) (float64, float64, error) {
	resp, err := v.exec.Call(ctx, v.plugin, &plugin.Request{Action: plugin.ActionVolumeRange, Channel: "volume"})
	if err != nil {
		return 0, 0, err
	}

	var data plugin.RangeData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, 0, fmt.Errorf("decode volume range: %w", err)
	}
	if data.Min >= data.Max {
		return 0, 0, fmt.Errorf("empty volume range [%g, %g]", data.Min, data.Max)
	}
	return data.Min, data.Max, nil
}

// Name returns the plugin name.
func (v *PluginVolume) Name() string {
	return v.plugin.Manifest.Name
}

// NewPluginBrightness binds the brightness channel to a plugin declaring set-brightness.
func NewPluginBrightness(mgr *plugin.Manager, exec *plugin.Executor, name string) (*PluginBrightness, error) {
	p, err := lookup(mgr, name, plugin.ActionSetBrightness)
	if err != nil {
		return nil, err
	}
	return &PluginBrightness{pluginSetter{exec: exec, plugin: p, action: plugin.ActionSetBrightness, channel: "brightness"}}, nil
}

// Name returns the plugin name.
func (b *PluginBrightness) Name() string {
	return b.plugin.Manifest.Name
}
