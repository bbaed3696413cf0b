package diff

import "github.com/dbwarden/warden/pkg/schema"

// typeWidth ranks types within a conversion family. A transition to a lower
// rank in the same family is narrowing. Families:
//
//	integers:   tinyint < smallint < int < bigint
//	exact:      decimal/money (wider than any integer)
//	floats:     real < float
//	strings:    char/varchar < nchar/nvarchar < text (unicode to non-unicode
//	            is narrowing regardless of length)
//	temporal:   datetime < datetime2 < datetimeoffset,
//	            timestamp < timestamptz
var typeWidth = map[schema.TypeTag]int{
	schema.TypeTinyInt:  1,
	schema.TypeSmallInt: 2,
	schema.TypeInt:      3,
	schema.TypeBigInt:   4,
	schema.TypeDecimal:  5,
	schema.TypeMoney:    5,

	schema.TypeReal:  1,
	schema.TypeFloat: 2,

	schema.TypeChar:     1,
	schema.TypeVarChar:  2,
	schema.TypeNChar:    3,
	schema.TypeNVarChar: 4,
	schema.TypeText:     5,

	schema.TypeDateTime:       1,
	schema.TypeDateTime2:      2,
	schema.TypeDateTimeOffset: 3,
	schema.TypeTimestamp:      1,
	schema.TypeTimestampTZ:    2,
}

// typeFamily groups tags whose widths are comparable.
var typeFamily = map[schema.TypeTag]string{
	schema.TypeTinyInt:  "number",
	schema.TypeSmallInt: "number",
	schema.TypeInt:      "number",
	schema.TypeBigInt:   "number",
	schema.TypeDecimal:  "number",
	schema.TypeMoney:    "number",

	schema.TypeReal:  "float",
	schema.TypeFloat: "float",

	schema.TypeChar:     "string",
	schema.TypeVarChar:  "string",
	schema.TypeNChar:    "string",
	schema.TypeNVarChar: "string",
	schema.TypeText:     "string",

	schema.TypeDateTime:       "datetime",
	schema.TypeDateTime2:      "datetime",
	schema.TypeDateTimeOffset: "datetime",
	schema.TypeTimestamp:      "timestamp",
	schema.TypeTimestampTZ:    "timestamp",
}

// isNarrowing reports whether the transition from the source column's type to
// the target's may lose information. Three cases qualify: a lower rank within
// the same family (bigint to int, nvarchar to varchar, decimal to int), a
// shrinking max_length (-1 meaning MAX is treated as unbounded), and a
// shrinking precision or scale on exact numerics.
func isNarrowing(source, target *schema.Column) bool {
	if source.Type != target.Type {
		sf, sok := typeFamily[source.Type]
		tf, tok := typeFamily[target.Type]
		if sok && tok && sf == tf && typeWidth[target.Type] < typeWidth[source.Type] {
			return true
		}
		// Cross-family transitions are conservative: unknown conversions are
		// not flagged, but float to integer always is.
		if sf == "float" && tf == "number" {
			return true
		}
	}

	if lengthShrinks(source.MaxLength, target.MaxLength) {
		return true
	}
	if source.Precision > 0 && target.Precision > 0 && target.Precision < source.Precision {
		return true
	}
	if source.Scale > 0 && target.Scale < source.Scale {
		return true
	}
	return false
}

// lengthShrinks treats -1 (MAX) as unbounded and 0 as "length not
// applicable".
func lengthShrinks(from, to int) bool {
	if from == 0 || to == 0 {
		return false
	}
	if to == -1 {
		return false
	}
	if from == -1 {
		return true
	}
	return to < from
}
