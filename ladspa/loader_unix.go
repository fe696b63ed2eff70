//go:build linux || darwin

package ladspa

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// cDescriptor mirrors LADSPA_Descriptor from ladspa.h on LP64
// platforms. Function members are raw code pointers invoked through
// purego.
type cDescriptor struct {
	uniqueID           uint64
	label              uintptr
	properties         int32
	_                  int32
	name               uintptr
	maker              uintptr
	copyright          uintptr
	portCount          uint64
	portDescriptors    uintptr // const int *
	portNames          uintptr // const char * const *
	portRangeHints     uintptr
	implementationData uintptr
	instantiate        uintptr
	connectPort        uintptr
	activate           uintptr
	run                uintptr
	runAdding          uintptr
	setRunAddingGain   uintptr
	deactivate         uintptr
	cleanup            uintptr
}

// cString copies a NUL-terminated C string.
func cString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}

	var out []byte

	for {
		b := *(*byte)(unsafe.Pointer(ptr)) //nolint:gosec // Reading foreign C memory is the point.
		if b == 0 {
			return string(out)
		}

		out = append(out, b)
		ptr++
	}
}

// nativePlugin is a Plugin backed by a shared object loaded with the
// platform dynamic linker.
type nativePlugin struct {
	library    uintptr
	descriptor *cDescriptor
	instance   uintptr

	// connected pins the Go slices handed to connect_port so the
	// collector cannot reclaim them while the plugin holds the raw
	// pointers.
	connected map[int][]float32
}

// Load opens the shared object at path, resolves the descriptor at the
// given index and instantiates it at the sample rate.
func Load(path string, index, samplerate int) (Plugin, error) {
	library, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("ladspa: opening %s: %w", path, err)
	}

	entry, err := purego.Dlsym(library, "ladspa_descriptor")
	if err != nil {
		_ = purego.Dlclose(library)

		return nil, fmt.Errorf("ladspa: %s: %w: %w", path, errBadPlugin, err)
	}

	ret, _, _ := purego.SyscallN(entry, uintptr(index))
	if ret == 0 {
		_ = purego.Dlclose(library)

		return nil, fmt.Errorf("%w %d in %s", errNoDescriptor, index, path)
	}

	descriptor := (*cDescriptor)(unsafe.Pointer(ret)) //nolint:gosec // Descriptor lives in the loaded library.

	if descriptor.instantiate == 0 || descriptor.connectPort == 0 || descriptor.run == 0 {
		_ = purego.Dlclose(library)

		return nil, fmt.Errorf("%w: %s lacks mandatory entry points", errBadPlugin, path)
	}

	instance, _, _ := purego.SyscallN(descriptor.instantiate, ret, uintptr(samplerate))
	if instance == 0 {
		_ = purego.Dlclose(library)

		return nil, fmt.Errorf("%w: %s refused to instantiate", errBadPlugin, path)
	}

	return &nativePlugin{
		library:    library,
		descriptor: descriptor,
		instance:   instance,
		connected:  make(map[int][]float32),
	}, nil
}

func (p *nativePlugin) Label() string {
	return cString(p.descriptor.label)
}

func (p *nativePlugin) PortCount() int {
	return int(p.descriptor.portCount)
}

func (p *nativePlugin) PortDescriptor(port int) int {
	base := p.descriptor.portDescriptors

	return int(*(*int32)(unsafe.Pointer(base + uintptr(port)*4))) //nolint:gosec // Bounds come from portCount.
}

func (p *nativePlugin) PortName(port int) string {
	base := p.descriptor.portNames

	return cString(*(*uintptr)(unsafe.Pointer(base + uintptr(port)*unsafe.Sizeof(uintptr(0))))) //nolint:gosec // Bounds come from portCount.
}

func (p *nativePlugin) Connect(port int, data []float32) {
	p.connected[port] = data
	purego.SyscallN(p.descriptor.connectPort, p.instance, uintptr(port), uintptr(unsafe.Pointer(&data[0])))
}

func (p *nativePlugin) Activate() {
	if p.descriptor.activate != 0 {
		purego.SyscallN(p.descriptor.activate, p.instance)
	}
}

func (p *nativePlugin) Deactivate() {
	if p.descriptor.deactivate != 0 {
		purego.SyscallN(p.descriptor.deactivate, p.instance)
	}
}

func (p *nativePlugin) Run(frames int) {
	purego.SyscallN(p.descriptor.run, p.instance, uintptr(frames))
}

func (p *nativePlugin) Cleanup() {
	if p.descriptor.cleanup != 0 {
		purego.SyscallN(p.descriptor.cleanup, p.instance)
	}

	p.connected = nil

	_ = purego.Dlclose(p.library)
}
