package codec

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
)

type decoderWithPriority struct {
	Priority int
	Decoder
}

type encoderWithPriority struct {
	Priority int
	Encoder
}

var (
	registryLocker  sync.RWMutex
	decoderRegistry = map[reflect.Type]decoderWithPriority{}
	encoderRegistry = map[reflect.Type]encoderWithPriority{}
)

func typeOf(v any) reflect.Type {
	t := reflect.ValueOf(v).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func RegisterDecoder(
	priority int,
	decoder Decoder,
) {
	registryLocker.Lock()
	defer registryLocker.Unlock()
	t := typeOf(decoder)
	if _, ok := decoderRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered a decoder of type %v", t))
	}
	decoderRegistry[t] = decoderWithPriority{
		Priority: priority,
		Decoder:  decoder,
	}
}

func RegisterEncoder(
	priority int,
	encoder Encoder,
) {
	registryLocker.Lock()
	defer registryLocker.Unlock()
	t := typeOf(encoder)
	if _, ok := encoderRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered an encoder of type %v", t))
	}
	encoderRegistry[t] = encoderWithPriority{
		Priority: priority,
		Encoder:  encoder,
	}
}

func matchesExtension(handled []string, ext string) bool {
	return ext == "" || slices.Contains(handled, strings.ToLower(ext))
}

// Decoders returns the registered decoders handling the extension, the
// highest priority first. An empty extension matches every decoder.
func Decoders(ext string) []Decoder {
	registryLocker.RLock()
	var decodersWithPriorities []decoderWithPriority
	for _, decoder := range decoderRegistry {
		if matchesExtension(decoder.Extensions(), ext) {
			decodersWithPriorities = append(decodersWithPriorities, decoder)
		}
	}
	registryLocker.RUnlock()
	sort.Slice(decodersWithPriorities, func(i, j int) bool {
		return decodersWithPriorities[i].Priority > decodersWithPriorities[j].Priority
	})

	var decoders []Decoder
	for _, decoder := range decodersWithPriorities {
		decoders = append(decoders, decoder.Decoder)
	}
	return decoders
}

// Encoders is Decoders for encoders.
func Encoders(ext string) []Encoder {
	registryLocker.RLock()
	var encodersWithPriorities []encoderWithPriority
	for _, encoder := range encoderRegistry {
		if matchesExtension(encoder.Extensions(), ext) {
			encodersWithPriorities = append(encodersWithPriorities, encoder)
		}
	}
	registryLocker.RUnlock()
	sort.Slice(encodersWithPriorities, func(i, j int) bool {
		return encodersWithPriorities[i].Priority > encodersWithPriorities[j].Priority
	})

	var encoders []Encoder
	for _, encoder := range encodersWithPriorities {
		encoders = append(encoders, encoder.Encoder)
	}
	return encoders
}

// Extensions returns the sorted set of extensions that can be decoded.
func Extensions() []string {
	var result []string
	for _, decoder := range Decoders("") {
		for _, ext := range decoder.Extensions() {
			if !slices.Contains(result, ext) {
				result = append(result, ext)
			}
		}
	}
	slices.Sort(result)
	return result
}
