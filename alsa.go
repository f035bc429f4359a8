package patchctl

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>
#include <string.h>

// Helper to get enum item name
static int get_enum_item_name(snd_ctl_t *handle, snd_ctl_elem_info_t *info, unsigned int idx, char *buf, size_t size) {
	snd_ctl_elem_info_set_item(info, idx);
	// Must call snd_ctl_elem_info again after setting item to query that item's name
	int err = snd_ctl_elem_info(handle, info);
	if (err < 0) {
		return err;
	}
	const char *name = snd_ctl_elem_info_get_item_name(info);
	if (!name) {
		return -1;
	}
	strncpy(buf, name, size - 1);
	buf[size - 1] = '\0';
	return 0;
}
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// ControlType represents the type of an ALSA control element
type ControlType int

const (
	ControlTypeNone ControlType = iota
	ControlTypeBoolean
	ControlTypeInteger
	ControlTypeEnumerated
	ControlTypeBytes
	ControlTypeIEC958
	ControlTypeInteger64
)

func (t ControlType) String() string {
	switch t {
	case ControlTypeBoolean:
		return "Boolean"
	case ControlTypeInteger:
		return "Integer"
	case ControlTypeEnumerated:
		return "Enumerated"
	case ControlTypeBytes:
		return "Bytes"
	case ControlTypeIEC958:
		return "IEC958"
	case ControlTypeInteger64:
		return "Integer64"
	default:
		return "None"
	}
}

// elem describes one ALSA control element. Multi-value elements yield one
// elem per value index.
type elem struct {
	NumID uint
	Name  string
	Type  ControlType
	Count int
	Index int
	// for integer types
	Min int64
	Max int64
	// for enumerated types
	Items []string
}

// ctlHandle wraps the C ALSA control handle (internal use only)
type ctlHandle struct {
	ptr     uintptr // snd_ctl_t* as uintptr
	pollFds []int
}

// alsaError converts ALSA error codes to Go errors
func alsaError(code C.int, operation string) error {
	if code >= 0 {
		return nil
	}
	errStr := C.GoString(C.snd_strerror(code))
	return fmt.Errorf("%s: %s", operation, errStr)
}

// openHandle opens an ALSA control handle for the specified card number and
// subscribes it to element events. The handle is nonblocking so draining the
// event queue returns EAGAIN once it is empty instead of waiting for the next
// event.
func openHandle(cardNum int) (*ctlHandle, error) {
	var handle *C.snd_ctl_t
	cardName := fmt.Sprintf("hw:%d", cardNum)
	cCardName := C.CString(cardName)
	defer C.free(unsafe.Pointer(cCardName))

	err := C.snd_ctl_open(&handle, cCardName, C.SND_CTL_NONBLOCK)
	if err < 0 {
		return nil, alsaError(err, "open card")
	}

	err = C.snd_ctl_subscribe_events(handle, 1)
	if err < 0 {
		C.snd_ctl_close(handle)
		return nil, alsaError(err, "subscribe to events")
	}

	count := C.snd_ctl_poll_descriptors_count(handle)
	if count <= 0 {
		C.snd_ctl_close(handle)
		return nil, fmt.Errorf("no poll descriptors available")
	}

	pfds := make([]C.struct_pollfd, count)
	n := C.snd_ctl_poll_descriptors(handle, &pfds[0], C.uint(count))
	if n < 0 {
		C.snd_ctl_close(handle)
		return nil, alsaError(n, "get poll descriptors")
	}

	pollFds := make([]int, count)
	for i := 0; i < int(count); i++ {
		pollFds[i] = int(pfds[i].fd)
	}

	return &ctlHandle{
		ptr:     uintptr(unsafe.Pointer(handle)),
		pollFds: pollFds,
	}, nil
}

// closeHandle closes an ALSA control handle
func closeHandle(h *ctlHandle) error {
	if h == nil || h.ptr == 0 {
		return nil
	}
	handle := (*C.snd_ctl_t)(unsafe.Pointer(h.ptr))
	err := C.snd_ctl_close(handle)
	h.ptr = 0
	return alsaError(err, "close card")
}

// cardName retrieves the human-readable name of a card
func cardName(cardNum int) (string, error) {
	var info *C.snd_ctl_card_info_t
	C.snd_ctl_card_info_malloc(&info)
	defer C.snd_ctl_card_info_free(info)

	var handle *C.snd_ctl_t
	name := fmt.Sprintf("hw:%d", cardNum)
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	err := C.snd_ctl_open(&handle, cName, 0)
	if err < 0 {
		return "", alsaError(err, "open card for info")
	}
	defer C.snd_ctl_close(handle)

	err = C.snd_ctl_card_info(handle, info)
	if err < 0 {
		return "", alsaError(err, "get card info")
	}

	return C.GoString(C.snd_ctl_card_info_get_name(info)), nil
}

// listElements enumerates all control elements on a card
func listElements(h *ctlHandle) ([]*elem, error) {
	handle := (*C.snd_ctl_t)(unsafe.Pointer(h.ptr))
	var info *C.snd_ctl_elem_info_t
	C.snd_ctl_elem_info_malloc(&info)
	defer C.snd_ctl_elem_info_free(info)

	var list *C.snd_ctl_elem_list_t
	C.snd_ctl_elem_list_malloc(&list)
	defer C.snd_ctl_elem_list_free(list)

	err := C.snd_ctl_elem_list(handle, list)
	if err < 0 {
		return nil, alsaError(err, "get element list")
	}

	count := C.snd_ctl_elem_list_get_count(list)
	err = C.snd_ctl_elem_list_alloc_space(list, count)
	if err < 0 {
		return nil, alsaError(err, "allocate element list space")
	}
	defer C.snd_ctl_elem_list_free_space(list)

	err = C.snd_ctl_elem_list(handle, list)
	if err < 0 {
		return nil, alsaError(err, "fill element list")
	}

	elems := make([]*elem, 0, count)

	for i := C.uint(0); i < count; i++ {
		numid := C.snd_ctl_elem_list_get_numid(list, i)

		C.snd_ctl_elem_info_set_numid(info, numid)
		err = C.snd_ctl_elem_info(handle, info)
		if err < 0 {
			continue // skip elements we can't query
		}

		name := C.GoString(C.snd_ctl_elem_info_get_name(info))
		elemType := ControlType(C.snd_ctl_elem_info_get_type(info))
		elemCount := int(C.snd_ctl_elem_info_get_count(info))

		// one elem per value in multi-value elements
		for idx := 0; idx < elemCount; idx++ {
			e := &elem{
				NumID: uint(numid),
				Name:  name,
				Type:  elemType,
				Count: elemCount,
				Index: idx,
			}

			switch elemType {
			case ControlTypeInteger:
				e.Min = int64(C.snd_ctl_elem_info_get_min(info))
				e.Max = int64(C.snd_ctl_elem_info_get_max(info))

			case ControlTypeInteger64:
				e.Min = int64(C.snd_ctl_elem_info_get_min64(info))
				e.Max = int64(C.snd_ctl_elem_info_get_max64(info))

			case ControlTypeEnumerated:
				itemCount := C.snd_ctl_elem_info_get_items(info)
				e.Items = make([]string, itemCount)

				buf := make([]byte, 256)
				for j := C.uint(0); j < itemCount; j++ {
					if C.get_enum_item_name(handle, info, j, (*C.char)(unsafe.Pointer(&buf[0])), 256) == 0 {
						e.Items[j] = string(buf[:cstrlen(buf)])
					}
				}
			}

			elems = append(elems, e)
		}
	}

	return elems, nil
}

// readElement reads the current raw value of an element
func readElement(h *ctlHandle, e *elem) (int64, error) {
	handle := (*C.snd_ctl_t)(unsafe.Pointer(h.ptr))
	var value *C.snd_ctl_elem_value_t
	C.snd_ctl_elem_value_malloc(&value)
	defer C.snd_ctl_elem_value_free(value)

	C.snd_ctl_elem_value_set_numid(value, C.uint(e.NumID))
	err := C.snd_ctl_elem_read(handle, value)
	if err < 0 {
		return 0, alsaError(err, "read element")
	}

	switch e.Type {
	case ControlTypeBoolean:
		return int64(C.snd_ctl_elem_value_get_boolean(value, C.uint(e.Index))), nil
	case ControlTypeInteger:
		return int64(C.snd_ctl_elem_value_get_integer(value, C.uint(e.Index))), nil
	case ControlTypeEnumerated:
		return int64(C.snd_ctl_elem_value_get_enumerated(value, C.uint(e.Index))), nil
	case ControlTypeInteger64:
		return int64(C.snd_ctl_elem_value_get_integer64(value, C.uint(e.Index))), nil
	default:
		return 0, fmt.Errorf("unsupported element type: %v", e.Type)
	}
}

// writeElement writes a raw value to an element
func writeElement(h *ctlHandle, e *elem, value int64) error {
	handle := (*C.snd_ctl_t)(unsafe.Pointer(h.ptr))
	var elemValue *C.snd_ctl_elem_value_t
	C.snd_ctl_elem_value_malloc(&elemValue)
	defer C.snd_ctl_elem_value_free(elemValue)

	// read current value first so sibling indices survive the write
	C.snd_ctl_elem_value_set_numid(elemValue, C.uint(e.NumID))
	err := C.snd_ctl_elem_read(handle, elemValue)
	if err < 0 {
		return alsaError(err, "read before write")
	}

	switch e.Type {
	case ControlTypeBoolean:
		C.snd_ctl_elem_value_set_boolean(elemValue, C.uint(e.Index), C.long(value))
	case ControlTypeInteger:
		C.snd_ctl_elem_value_set_integer(elemValue, C.uint(e.Index), C.long(value))
	case ControlTypeEnumerated:
		C.snd_ctl_elem_value_set_enumerated(elemValue, C.uint(e.Index), C.uint(value))
	case ControlTypeInteger64:
		C.snd_ctl_elem_value_set_integer64(elemValue, C.uint(e.Index), C.longlong(value))
	default:
		return fmt.Errorf("unsupported element type for writing: %v", e.Type)
	}

	err = C.snd_ctl_elem_write(handle, elemValue)
	return alsaError(err, "write element")
}

// drainEvent consumes one pending event, reporting whether it was an
// element change
func drainEvent(h *ctlHandle) (bool, error) {
	handle := (*C.snd_ctl_t)(unsafe.Pointer(h.ptr))
	var event *C.snd_ctl_event_t
	C.snd_ctl_event_malloc(&event)
	defer C.snd_ctl_event_free(event)

	err := C.snd_ctl_read(handle, event)
	if err < 0 {
		if err == -C.EAGAIN {
			return false, nil // no event available
		}
		return false, alsaError(err, "read event")
	}

	return C.snd_ctl_event_get_type(event) == C.SND_CTL_EVENT_ELEM, nil
}

// cardNumbers returns the indices of all available ALSA cards
func cardNumbers() ([]int, error) {
	var cardNum C.int = -1
	var cards []int

	for {
		err := C.snd_card_next(&cardNum)
		if err < 0 {
			return nil, alsaError(err, "enumerate cards")
		}
		if cardNum < 0 {
			break // no more cards
		}
		cards = append(cards, int(cardNum))
	}

	return cards, nil
}

// cstrlen finds the length of a null-terminated C string in a byte slice
func cstrlen(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}
