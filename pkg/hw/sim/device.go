// Copyright 2026 The htinit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sim

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

// Config space layout of simulated devices.
const (
	slaveCapOff = 0x40
	retryCapOff = 0x60
	gen3CapOff  = 0x80
)

type chain struct {
	devices []*device
}

func newChain(descs []Device) *chain {
	c := &chain{}
	for _, d := range descs {
		c.devices = append(c.devices, newDevice(d))
	}
	return c
}

// lookup finds the device answering at dev. An unconfigured device answers
// at device 0 and hides everything behind it.
func (c *chain) lookup(dev uint32) *device {
	for _, d := range c.devices {
		if d.buid == 0 {
			if dev == 0 {
				return d
			}
			return nil
		}
		if dev >= d.buid && dev < d.buid+uint32(d.desc.Units) {
			return d
		}
	}
	return nil
}

type device struct {
	desc Device
	buid uint32
	regs map[uint32]uint32
}

func newDevice(desc Device) *device {
	d := &device{desc: desc, regs: map[uint32]uint32{}}
	d.regs[0x00] = desc.VendorDevice
	if desc.VendorDevice == 0 {
		d.regs[0x00] = 0x74501022
	}
	d.regs[hw.RegCommandStatus] = 1 << 20
	d.regs[hw.RegCapPointer] = slaveCapOff

	var caps []uint32
	caps = append(caps, slaveCapOff)
	if desc.Retry {
		caps = append(caps, retryCapOff)
	}
	if desc.Gen3 {
		caps = append(caps, gen3CapOff)
	}
	headers := map[uint32]uint32{
		slaveCapOff: hw.CapHyperTransport,
		retryCapOff: htreg.CapRetry,
		gen3CapOff:  htreg.CapGen3,
	}
	for i, off := range caps {
		var next uint32
		if i+1 < len(caps) {
			next = caps[i+1]
		}
		d.regs[off] = headers[off] | next<<8
	}

	cmd := d.regs[slaveCapOff]
	cmd = hw.SetField(cmd, htreg.SlaveUnitsHi, htreg.SlaveUnitsLo, uint32(desc.Units))
	cmd = hw.SetField(cmd, htreg.SlaveMasterHostBit, htreg.SlaveMasterHostBit,
		uint32(desc.UpstreamLink))
	d.regs[slaveCapOff] = cmd

	ctl := hw.SetField(0, htreg.MaxWidthInHi, htreg.MaxWidthInLo, widthCodes[desc.WidthIn])
	ctl = hw.SetField(ctl, htreg.MaxWidthOutHi, htreg.MaxWidthOutLo, widthCodes[desc.WidthOut])
	freq := hw.SetField(0, htreg.FreqCapHi, htreg.FreqCapLo,
		uint32(ht.FreqMaskUpToMHz(desc.MaxFreqMHz)))
	for l := uint32(0); l < 2; l++ {
		d.regs[slaveCapOff+htreg.SlaveLink0Ctl+4*l] = ctl
		d.regs[slaveCapOff+htreg.SlaveLink0Freq+4*l] = freq
	}
	if desc.Isochronous {
		d.regs[slaveCapOff+htreg.SlaveFeature] = 1 << htreg.FeatIsocBit
	}
	return d
}

func (d *device) read(off uint32) uint32 {
	return d.regs[off]
}

func (d *device) write(off, v uint32) {
	old := d.regs[off]
	switch off {
	case 0x00, hw.RegCommandStatus, hw.RegCapPointer:
		return
	case slaveCapOff:
		// Only the unit id is writable in the command word.
		buid := hw.Field(v, htreg.SlaveBUIDHi, htreg.SlaveBUIDLo)
		if d.desc.RefuseBUID {
			return
		}
		d.buid = buid
		v = hw.SetField(old, htreg.SlaveBUIDHi, htreg.SlaveBUIDLo, buid)
	}
	d.regs[off] = v
}
