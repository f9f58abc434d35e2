// Package schematest provides a shared model for tests.
package schematest

import (
	"jsoncache/core/schema"
)

const musicYAML = `
name: Music
entities:
  - name: Band
    attributes:
      - {name: name, type: string, identifier: true}
      - {name: bandDescription, type: string}
      - {name: formed, type: integer, required: true}
      - {name: disbanded, type: integer}
      - {name: hiatus, type: integer}
      - {name: otherNames, type: string}
    relationships:
      - {name: albums, destination: Album, to_many: true, inverse: band}
      - {name: members, destination: BandMember, to_many: true, inverse: band}
  - name: Album
    attributes:
      - {name: name, type: string, identifier: true}
      - {name: albumDescription, type: string}
      - {name: released, type: date}
      - {name: label, type: string}
      - {name: releasedAs, type: string}
    relationships:
      - {name: band, destination: Band}
  - name: Musician
    attributes:
      - {name: name, type: string, identifier: true}
      - {name: born, type: integer}
      - {name: dead, type: integer}
      - {name: instruments, type: string}
    relationships:
      - {name: bands, destination: BandMember, to_many: true, inverse: musician}
  - name: BandMember
    table: band_members
    attributes:
      - {name: id, type: string}
      - {name: joined, type: integer}
      - {name: left, type: integer}
      - {name: active, type: boolean}
    relationships:
      - {name: band, destination: Band}
      - {name: musician, destination: Musician}
`

// Music returns a fresh copy of the Band/Album/Musician/BandMember model.
// Band.formed is required, which lets tests provoke save-time validation failures.
func Music() *schema.Model {
	m, err := schema.Parse("music", []byte(musicYAML))
	if err != nil {
		panic(err)
	}
	return m
}
