// Package form assembles the prefilled Google Form URLs. The entry
// identifiers are positionally fixed per form template and must match the
// live forms bit-exact for the link to prefill correctly.
package form

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	sptBase   = "https://docs.google.com/forms/d/e/1FAIpQLSdivk8RS_OSl1hX93beSaW19oYZKmxG9TiGD6-4o0cGGPdH3Q/viewform?usp=pp_url"
	pokjaBase = "https://docs.google.com/forms/d/e/1FAIpQLSck2K4R5b443zY5TETTwHbVURQyUs3UUk3BRgcdsH7Uqx7Quw/viewform?usp=pp_url"
)

// Scalar entry identifiers shared by both form templates.
const (
	entryCount        = "1129931024"
	entryInstitution  = "51947438"
	entryLetterNumber = "1344618841"
	entrySubject      = "1992581915"
	entryLetterDate   = "1712954723"
	entryEmail        = "1732353446"
	entryOfficer      = "1189723868"
	entryRUPPokja     = "1758763754"
)

// rupEntryIDs reserves 30 positional slots for RUP codes on the
// single-officer form. Codes beyond the capacity are dropped, never erroring.
var rupEntryIDs = []string{
	"1758763754", "1665074227", "1214865365", "1172219468", "480767324",
	"1966776539", "171809390", "1364507263", "1478064799", "1818751586",
	"1600732722", "1182121141", "762453082", "1311139489", "2115970786",
	"488204573", "899865557", "1817032607", "119318655", "759792063",
	"621960190", "1859907600", "2049718850", "1064239266", "610042270",
	"872279779", "1540825750", "1576439004", "1385684866", "1334924361",
}

// teamEntryIDs reserves 7 positional slots for team names on the team form.
var teamEntryIDs = []string{
	"1189723868", "1249560783", "1026234403",
	"1040631271", "1536654219", "868073288", "1731731973",
}

// RUPCapacity and TeamCapacity are the positional slot counts of the two
// list fields.
const (
	RUPCapacity  = 30
	TeamCapacity = 7
)

// Fields is the fully resolved field set consumed by the builders.
type Fields struct {
	Institution  string
	LetterNumber string
	Subject      string
	LetterDate   string
	Email        string
	Officer      string   // single-officer form only
	RUPCodes     []string // single-officer form: positional slots
	RUPCodesRaw  string   // team form: single scalar
	TeamNames    []string // team form: positional slots
}

var (
	reLetterNumberJunk = regexp.MustCompile(`\s+|\.{2,}`)
	reDots             = regexp.MustCompile(`\.+`)
)

// CleanLetterNumber strips whitespace and runs of dots so the letter number
// lands in the form as one token.
func CleanLetterNumber(s string) string { return reLetterNumberJunk.ReplaceAllString(s, "") }

// CleanSubject strips dots from the subject line.
func CleanSubject(s string) string { return reDots.ReplaceAllString(s, "") }

// encodeValue percent-encodes a value with spaces as %20.
func encodeValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// encodePlus percent-encodes a value with spaces as +. The institution field
// of the target forms expects this encoding.
func encodePlus(s string) string { return url.QueryEscape(s) }

type builder struct{ b strings.Builder }

func (w *builder) param(id, encoded string) {
	if encoded == "" {
		return
	}
	w.b.WriteString("&entry.")
	w.b.WriteString(id)
	w.b.WriteString("=")
	w.b.WriteString(encoded)
}

// BuildSPTURL builds the single-officer prefill link. The count parameter is
// the full RUP code count, even when it exceeds the slot capacity.
func BuildSPTURL(f Fields) string {
	var w builder
	w.b.WriteString(sptBase)
	w.param(entryCount, strconv.Itoa(len(f.RUPCodes)))
	w.param(entryInstitution, encodePlus(f.Institution))
	w.param(entryLetterNumber, encodeValue(CleanLetterNumber(f.LetterNumber)))
	w.param(entrySubject, encodeValue(CleanSubject(f.Subject)))
	w.param(entryLetterDate, encodeValue(f.LetterDate))
	w.param(entryEmail, encodeValue(f.Email))
	w.param(entryOfficer, encodeValue(f.Officer))
	for i, code := range f.RUPCodes {
		if i >= len(rupEntryIDs) {
			break
		}
		w.param(rupEntryIDs[i], encodeValue(code))
	}
	return w.b.String()
}

// BuildPokjaURL builds the team prefill link. Team names fill positional
// slots before the email parameter; the count parameter is the team count.
func BuildPokjaURL(f Fields) string {
	var w builder
	w.b.WriteString(pokjaBase)
	w.param(entryCount, strconv.Itoa(len(f.TeamNames)))
	w.param(entryInstitution, encodePlus(f.Institution))
	w.param(entryLetterNumber, encodeValue(CleanLetterNumber(f.LetterNumber)))
	w.param(entryLetterDate, encodeValue(f.LetterDate))
	w.param(entrySubject, encodeValue(CleanSubject(f.Subject)))
	w.param(entryRUPPokja, encodeValue(f.RUPCodesRaw))
	for i, name := range f.TeamNames {
		if i >= len(teamEntryIDs) {
			break
		}
		w.param(teamEntryIDs[i], encodeValue(strings.TrimSpace(name)))
	}
	w.param(entryEmail, encodeValue(f.Email))
	return w.b.String()
}
