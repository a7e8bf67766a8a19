package wgpudrv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gekko3d/light/volumert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
)

func (d *Driver) ensureEncoder() bool {
	if d.encoder != nil {
		return true
	}
	enc, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		d.log.Errorf("CreateCommandEncoder failed: %v", err)
		return false
	}
	d.encoder = enc
	return true
}

func (d *Driver) endPass() {
	if d.pass == nil {
		return
	}
	if err := d.pass.End(); err != nil {
		d.log.Errorf("compute pass End failed: %v", err)
	}
	d.pass.Release()
	d.pass = nil
}

// submit ends the open pass and submits everything recorded so far.
func (d *Driver) submit() {
	d.endPass()
	if d.encoder == nil {
		return
	}
	cmd, err := d.encoder.Finish(nil)
	d.encoder.Release()
	d.encoder = nil
	if err != nil {
		d.log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	d.Queue.Submit(cmd)
	cmd.Release()
}

// resource returns the bind group entry for b from the current bind state.
// Units are counted per binding kind in declaration order.
func (d *Driver) resource(p *program, b gpu.Binding, unit uint32) (wgpu.BindGroupEntry, gpu.Handle, error) {
	e := wgpu.BindGroupEntry{Binding: b.Binding}
	switch b.Kind {
	case gpu.BindingUniform:
		e.Buffer, e.Size = p.uniforms, wgpu.WholeSize
		return e, 0, nil
	case gpu.BindingStorageBuffer:
		h := d.storage[unit]
		buf, ok := d.buffers[h]
		if !ok {
			return e, 0, fmt.Errorf("%s: no storage buffer bound at %d", b.Name, unit)
		}
		e.Buffer, e.Size = buf.buf, wgpu.WholeSize
		return e, h, nil
	case gpu.BindingStorageTexture:
		u, ok := d.images[unit]
		t, found := d.textures[u.texture]
		if !ok || !found {
			return e, 0, fmt.Errorf("%s: no image bound at unit %d", b.Name, unit)
		}
		if u.format.String() != b.Format || t.desc.Format != u.format {
			return e, 0, fmt.Errorf("%s: image unit %d is %s, shader wants %s", b.Name, unit, u.format, b.Format)
		}
		e.TextureView = t.view
		return e, u.texture, nil
	case gpu.BindingTexture:
		h := d.samplers[unit]
		t, ok := d.textures[h]
		if !ok {
			return e, 0, fmt.Errorf("%s: no texture bound at unit %d", b.Name, unit)
		}
		e.TextureView = t.view
		return e, h, nil
	}
	return e, 0, fmt.Errorf("%s: %s bindings are not supported", b.Name, b.Kind)
}

// bindGroups builds the program's bind groups for the current bind state,
// reusing them while the bound objects stay the same.
func (d *Driver) bindGroups(p *program) (map[uint32]*wgpu.BindGroup, error) {
	entries := map[uint32][]wgpu.BindGroupEntry{}
	units := map[gpu.BindingKind]uint32{}
	var key strings.Builder
	for _, b := range p.refl.Bindings {
		unit := units[b.Kind]
		units[b.Kind]++
		e, h, err := d.resource(p, b, unit)
		if err != nil {
			return nil, err
		}
		entries[b.Group] = append(entries[b.Group], e)
		key.WriteString(strconv.FormatUint(uint64(h), 10))
		key.WriteByte(',')
	}
	if p.bindGroups != nil && p.bindKey == key.String() {
		return p.bindGroups, nil
	}

	p.releaseBindGroups()
	groups := map[uint32]*wgpu.BindGroup{}
	for group, list := range entries {
		layout := p.pipeline.GetBindGroupLayout(group)
		bg, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.label, group),
			Layout:  layout,
			Entries: list,
		})
		layout.Release()
		if err != nil {
			for _, g := range groups {
				g.Release()
			}
			return nil, err
		}
		groups[group] = bg
	}
	p.bindGroups, p.bindKey = groups, key.String()
	return groups, nil
}

// DispatchCompute records the dispatch into the open compute pass.
func (d *Driver) DispatchCompute(x, y, z uint32) {
	p, ok := d.programs[d.current]
	if !ok || !p.linked {
		d.log.Errorf("dispatch with program %d not linked", d.current)
		return
	}
	groups, err := d.bindGroups(p)
	if err != nil {
		d.log.Errorf("%s: %v", p.label, err)
		return
	}
	if p.uniforms != nil && p.block.Dirty {
		// Queue writes land before any later submit, so earlier
		// dispatches must be submitted with the old values first.
		d.submit()
		if err := d.Queue.WriteBuffer(p.uniforms, 0, p.block.Data); err != nil {
			d.log.Errorf("%s: uniform upload failed: %v", p.label, err)
			return
		}
		p.block.Dirty = false
	}

	if !d.ensureEncoder() {
		return
	}
	if d.pass == nil {
		d.pass = d.encoder.BeginComputePass(nil)
	}
	d.pass.SetPipeline(p.pipeline)
	for group, bg := range groups {
		d.pass.SetBindGroup(group, bg, nil)
	}
	d.pass.DispatchWorkgroups(x, y, z)
}

// MemoryBarrier submits the recorded dispatches. Commands of later
// submissions observe their writes.
func (d *Driver) MemoryBarrier(bits gpu.Barrier) {
	d.submit()
}
