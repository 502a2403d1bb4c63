// Package value defines the typed value model carried between the
// acquisition layer and the IEC 104 bridge.
//
// A Value is an immutable tagged union over boolean, integer-family,
// floating-point and string payloads. The zero Value is the "absent"
// sentinel used when a record carries no reading.
//
// Accessors are strict: calling AsBool on an INTEGER value panics. Callers
// switch on Kind first.
//
//	v := value.Int(42)
//	switch v.Kind() {
//	case value.KindInteger:
//	    fmt.Println(v.AsInt64())
//	}
package value
