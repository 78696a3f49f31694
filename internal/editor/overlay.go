package editor

import "sort"

// OverlayHost mounts detached overlay elements for floating UI.
type OverlayHost interface {
	Mount(id string)
	Unmount(id string)
}

// Overlays is an OverlayHost that records what is mounted. Hosts without a
// real surface use it to expose overlays through the view.
type Overlays struct {
	mounted map[string]int
}

// Mount implements OverlayHost.
func (o *Overlays) Mount(id string) {
	if o.mounted == nil {
		o.mounted = make(map[string]int)
	}
	o.mounted[id]++
}

// Unmount implements OverlayHost.
func (o *Overlays) Unmount(id string) {
	if o.mounted[id] <= 1 {
		delete(o.mounted, id)
		return
	}
	o.mounted[id]--
}

// Mounted lists mounted overlay ids, one entry per mount.
func (o *Overlays) Mounted() []string {
	var out []string
	for id, n := range o.mounted {
		for i := 0; i < n; i++ {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Target is the element path of a pointer event, innermost element first.
type Target []string

// Within reports whether the event happened inside the element id.
func (t Target) Within(id string) bool {
	for _, el := range t {
		if el == id {
			return true
		}
	}
	return false
}
