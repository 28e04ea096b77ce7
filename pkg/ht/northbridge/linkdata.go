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

package northbridge

import (
	"github.com/htfabric/htinit/pkg/ht"
	"github.com/htfabric/htinit/pkg/hw"
	"github.com/htfabric/htinit/pkg/hw/htreg"
)

// Bit 15 of a frequency capability is reserved.
const freqCapMask = 0x7FFF

// slaveLink returns the register of the device side link of an I/O port,
// given the link 0 register offset. Link 1 registers follow at +4.
func slaveLink(p *ht.Port, link0Off uint32) hw.Address {
	return p.Pointer.Add(link0Off + 4*uint32(p.Link))
}

func (b *base) GatherLinkData(st *ht.State) {
	for i := range st.Ports.Pairs {
		for s := 0; s < 2; s++ {
			p := st.Ports.Pairs[i].Side(s)
			if p.Type == ht.PortCPU {
				b.gatherCPU(p)
			} else {
				b.gatherIO(p)
			}
		}
	}
}

func (b *base) gatherCPU(p *ht.Port) {
	p.Pointer = b.linkReg(p.NodeID, p.Link, 0)
	ctl := b.acc.Read(p.Pointer.Add(htreg.LinkCtl))
	p.WidthOutCap = b.BitsToWidth(hw.Field(ctl, htreg.MaxWidthOutHi, htreg.MaxWidthOutLo))
	p.WidthInCap = b.BitsToWidth(hw.Field(ctl, htreg.MaxWidthInHi, htreg.MaxWidthInLo))
	freqCap := hw.ReadBits(b.acc, p.Pointer.Add(htreg.LinkFreq), htreg.FreqCapHi, htreg.FreqCapLo)
	p.FreqCap = ht.FreqMask(freqCap&freqCapMask) & b.FreqMask(p.NodeID)
	p.FeatureCap = ht.Feature(hw.ReadBits(b.acc, p.Pointer.Add(htreg.LinkFeature), 9, 0))
}

func (b *base) gatherIO(p *ht.Port) {
	ctl := b.acc.Read(slaveLink(p, htreg.SlaveLink0Ctl))
	p.WidthOutCap = b.BitsToWidth(hw.Field(ctl, htreg.MaxWidthOutHi, htreg.MaxWidthOutLo))
	p.WidthInCap = b.BitsToWidth(hw.Field(ctl, htreg.MaxWidthInHi, htreg.MaxWidthInLo))
	freqCap := hw.ReadBits(b.acc, slaveLink(p, htreg.SlaveLink0Freq), htreg.FreqCapHi,
		htreg.FreqCapLo)
	p.FreqCap = ht.FreqMask(freqCap & freqCapMask)
	p.FeatureCap = ht.Feature(hw.ReadBits(b.acc, p.Pointer.Add(htreg.SlaveFeature), 9, 0))
}

// widthField packs the selected widths as bits [31:24] of a link control
// register expect them.
func (b *base) widthField(p *ht.Port) uint32 {
	return b.WidthToBits(p.SelWidthIn)&7 | (b.WidthToBits(p.SelWidthOut)&7)<<4
}

func (b *base) ApplyLinkData(st *ht.State) {
	for i := range st.Ports.Pairs {
		for s := 0; s < 2; s++ {
			p := st.Ports.Pairs[i].Side(s)
			if p.Type == ht.PortCPU {
				b.applyCPU(p)
			} else {
				b.applyIO(p, st)
			}
		}
	}
}

func (b *base) applyCPU(p *ht.Port) {
	base := b.linkReg(p.NodeID, p.Link, 0)
	// Widths are written in one go; some devices misbehave otherwise.
	b.writeLinkControl(base.Add(htreg.LinkCtl), htreg.WidthOutHi, htreg.WidthInLo,
		b.widthField(p))
	hw.WriteBits(b.acc, base.Add(htreg.LinkFreq), htreg.FreqSelHi, htreg.FreqSelLo,
		uint32(p.SelFreq))

	ext := b.acc.Read(base.Add(htreg.LinkExtCtl))
	if b.fam.ht3 {
		gen3 := boolBit(p.SelFreq.Gen3())
		ext = hw.SetField(ext, htreg.ExtRetryEnBit, htreg.ExtRetryEnBit, gen3)
		ext = hw.SetField(ext, htreg.ExtScrEnBit, htreg.ExtScrEnBit, gen3)
	}
	if b.fam.maxLinks > 4 {
		ext = hw.SetField(ext, htreg.ExtGangedBit, htreg.ExtGangedBit, boolBit(p.SelRegang))
	}
	if b.fam.isochronous {
		ext = hw.SetField(ext, htreg.ExtIsocEnBit, htreg.ExtIsocEnBit, boolBit(p.Isochronous))
	}
	b.acc.Write(base.Add(htreg.LinkExtCtl), ext)
}

func (b *base) applyIO(p *ht.Port, st *ht.State) {
	ctl := slaveLink(p, htreg.SlaveLink0Ctl)
	v := b.acc.Read(ctl)
	b.acc.Write(ctl, hw.SetField(v, htreg.WidthOutHi, htreg.WidthInLo, b.widthField(p)))
	hw.WriteBits(b.acc, slaveLink(p, htreg.SlaveLink0Freq), htreg.FreqSelHi, htreg.FreqSelLo,
		uint32(p.SelFreq))
	if b.fam.isochronous {
		hw.WriteBits(b.acc, p.Pointer.Add(htreg.SlaveEnables), 0, 0, boolBit(p.Isochronous))
	}

	// Gen3 frequencies need retry and scrambling on the device too. Turning
	// them off on a device without the capability is fine; it was gen1 only.
	gen3 := boolBit(p.SelFreq.Gen3())
	dev := p.Pointer.Base()
	if retry, ok := hw.FindCapability(b.acc, dev, isCap(htreg.CapRetry)); ok {
		bit := 7 + 8*uint(p.Link)
		hw.WriteBits(b.acc, retry.Add(htreg.RetryControl), bit, bit, gen3)
	} else if gen3 != 0 {
		st.Raise(ht.ClassWarning, ht.OptRequiredCapRetry, "node", p.NodeID,
			"link", p.HostLink, "depth", p.HostDepth)
	}
	if g3, ok := hw.FindCapability(b.acc, dev, isCap(htreg.CapGen3)); ok {
		off := htreg.Gen3Training0 + htreg.Gen3LinkStride*uint32(p.Link)
		hw.WriteBits(b.acc, g3.Add(off), htreg.Gen3ScrBit, htreg.Gen3ScrBit, gen3)
	} else if gen3 != 0 {
		st.Raise(ht.ClassWarning, ht.OptRequiredCapGen3, "node", p.NodeID,
			"link", p.HostLink, "depth", p.HostDepth)
	}
}

func isCap(header uint32) func(uint32) bool {
	return func(v uint32) bool { return v&htreg.CapTypeMask == header }
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
