// Package codec provides the deserialize/serialize pairs that sit between a
// stored raw string and a typed in-memory value.
//
// Every codec implements Codec[T]. Deserialize receives a nil pointer when
// the store has no entry and decides whether absence is acceptable:
// String, JSON and YAML reject it with ErrNoValue, Optional turns it into a
// fallback value.
//
// JSON and YAML run Validators after decoding. Validators are usually built
// from Rules with Apply:
//
//	type Profile struct {
//	    Name string `json:"name"`
//	}
//
//	c := codec.JSON[Profile](func(p Profile) error {
//	    return codec.Apply(
//	        codec.RequiredString("name", p.Name),
//	        codec.MaxLenString("name", p.Name, 64),
//	    )
//	})
//
// A failed rule set is reported as ValidationErrors; parse failures wrap
// ErrDecode.
package codec
