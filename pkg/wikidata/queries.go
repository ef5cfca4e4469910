package wikidata

// SPARQL against the public WDQS endpoint. Q20826540 is the "scholar"
// occupation class, Q28640 "profession"; P106 occupation, P569/P570
// birth/death, P800 notable work, P50 author, P170 creator, P577
// publication date.

const queryOccupations = `
SELECT ?occ ?lblEN WHERE {
  ?occ wdt:P279+ wd:Q20826540 ; wdt:P31 wd:Q28640 .
  OPTIONAL { ?occ rdfs:label ?lblEN FILTER(LANG(?lblEN)="en") }
}
`

const queryPeopleTemplate = `
SELECT ?person ?personLabel ?birth ?death ?notableWork ?notableWorkLabel ?occLabel
WHERE {
  VALUES ?targetOcc { wd:{OCC_ID} }
  ?person wdt:P31 wd:Q5 ; wdt:P106 ?targetOcc .
  OPTIONAL { ?person wdt:P569 ?birth. }
  OPTIONAL { ?person wdt:P570 ?death. }
  OPTIONAL { ?person wdt:P800 ?notableWork. }
  OPTIONAL { ?targetOcc rdfs:label ?occLabel FILTER(LANG(?occLabel)="en") }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
LIMIT {LIMIT}
OFFSET {OFFSET}
`

const queryWorksTemplate = `
SELECT ?person ?work ?workLabel ?workDescription ?published WHERE {
  VALUES ?person { {PERSON_IDS} }
  { ?work wdt:P50 ?person } UNION
  { ?work wdt:P170 ?person }
  OPTIONAL { ?work wdt:P577 ?published. }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}
`
