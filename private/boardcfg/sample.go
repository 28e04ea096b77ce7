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

package boardcfg

const boardSample = `
# YAML reference topology library replacing the built-in one. (default "")
topology_library = ""
`

const busSample = `
# First bus handed to an automatically numbered chain. (default 0)
start = 0

# No chain may reach past this bus. (default 255)
max = 255

# Buses consumed by every automatically numbered chain. (default 32)
increment = 32
`

const linksSample = `
# Capacity of the port list. (default 64)
max_pairs = 64

# Upper bound of every link clock in MHz, 0 for none. (default 0)
speed_ceiling_mhz = 2000

# Run every link isochronous once an I/O link can. (default false)
iommu = false

# The firmware distributes traffic between two nodes itself. (default false)
custom_traffic_distribution = false

# Nodes whose buffer allocation the firmware tunes itself. (default [])
custom_buffers = []
`

const listsSample = `
# Links hidden from discovery and enumeration. Name both ends of a coherent
# link.
[[ignore]]
node = 1
link = 3

# Fixed bus range of the chain on a link.
[[bus_override]]
node = 0
link = 2
secondary = 64
subordinate = 95

# Chain described by hand. Assignments are made first, then the hops are
# recorded host outwards. upstream_link overrides what the device reports.
[[manual_chain]]
node = 1
link = 2

[[manual_chain.assign]]
device = 0
buid = 4

[[manual_chain.hop]]
device = 4
upstream_link = 0

# Corrects what the device at depth of a chain reports.
[[device_override]]
node = 0
link = 2
depth = 0
width_in = 8
width_out = 8
max_freq_mhz = 800

# Narrows a CPU to CPU link. down is the direction away from node_a.
[[cpu_limit]]
node_a = 0
link_a = 0
node_b = 1
link_b = 0
down = 8
max_freq_mhz = 1600

# Narrows the link above the device at depth of a chain.
[[chain_limit]]
node = 0
link = 2
depth = 0
up = 8

# Sublinks between these ends are never merged.
[[regang_veto]]
node_a = 0
link_a = 1
node_b = 2
link_b = 1

# Final setting of a CPU port.
[[cpu_port]]
node = 0
link = 2
freq_mhz = 800

# Final setting of one side of a device.
[[device_port]]
node = 0
link = 2
depth = 0
side = 0
freq_mhz = 800
`
