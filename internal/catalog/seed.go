package catalog

import "strings"

// Well-known object identifiers.
const (
	IDMoon     ObjectID = "moon"
	IDMercury  ObjectID = "mercury"
	IDVenus    ObjectID = "venus"
	IDMars     ObjectID = "mars"
	IDJupiter  ObjectID = "jupiter"
	IDSaturn   ObjectID = "saturn"
	IDUranus   ObjectID = "uranus"
	IDNeptune  ObjectID = "neptune"
	IDISS      ObjectID = "iss"
	IDPolaris  ObjectID = "polaris"
	IDSigmaOct ObjectID = "sigma-oct"
)

// Horizons major-body command tokens.
// Sourced from https://ssd.jpl.nasa.gov/horizons/manual.html
const (
	HorizonsMoon    = "301"
	HorizonsMercury = "199"
	HorizonsVenus   = "299"
	HorizonsMars    = "499"
	HorizonsJupiter = "599"
	HorizonsSaturn  = "699"
	HorizonsUranus  = "799"
	HorizonsNeptune = "899"
)

// NORADISS is the catalog number of the International Space Station.
const NORADISS = 25544

// seed is the canonical list. Coordinates are J2000.
var seed = []Object{
	// Moon
	{ID: IDMoon, Name: "Moon", Kind: KindMoon, Difficulty: NakedEye, Source: Source{Command: HorizonsMoon}},

	// Planets
	{ID: IDMercury, Name: "Mercury", Kind: KindPlanet, Difficulty: NakedEye, Source: Source{Command: HorizonsMercury}},
	{ID: IDVenus, Name: "Venus", Kind: KindPlanet, Difficulty: NakedEye, Source: Source{Command: HorizonsVenus}},
	{ID: IDMars, Name: "Mars", Kind: KindPlanet, Difficulty: NakedEye, Source: Source{Command: HorizonsMars}},
	{ID: IDJupiter, Name: "Jupiter", Kind: KindPlanet, Difficulty: NakedEye, Source: Source{Command: HorizonsJupiter}},
	{ID: IDSaturn, Name: "Saturn", Kind: KindPlanet, Difficulty: NakedEye, Source: Source{Command: HorizonsSaturn}},
	{ID: IDUranus, Name: "Uranus", Kind: KindPlanet, Difficulty: Binoculars, Source: Source{Command: HorizonsUranus}},
	{ID: IDNeptune, Name: "Neptune", Kind: KindPlanet, Difficulty: Telescope, Source: Source{Command: HorizonsNeptune}},

	// Satellites
	{ID: IDISS, Name: "International Space Station", Kind: KindSatellite, Difficulty: NakedEye, Source: Source{NORAD: NORADISS}},

	// Stars
	{ID: IDPolaris, Name: "Polaris", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 2.5303, DecDeg: 89.2642}},
	{ID: IDSigmaOct, Name: "Sigma Octantis", Kind: KindDeepSky, Difficulty: Binoculars, Source: Source{RAHours: 21.1465, DecDeg: -88.9565}},

	// Messier
	{ID: "m31", Name: "Andromeda Galaxy (M31)", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 0.7123, DecDeg: 41.2692}},
	{ID: "m45", Name: "Pleiades (M45)", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 3.7906, DecDeg: 24.1167}},
	{ID: "m42", Name: "Orion Nebula (M42)", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 5.5881, DecDeg: -5.3911}},
	{ID: "m51", Name: "Whirlpool Galaxy (M51)", Kind: KindDeepSky, Difficulty: Telescope, Source: Source{RAHours: 13.4979, DecDeg: 47.1953}},
	{ID: "m13", Name: "Hercules Cluster (M13)", Kind: KindDeepSky, Difficulty: Binoculars, Source: Source{RAHours: 16.6949, DecDeg: 36.4613}},
	{ID: "m8", Name: "Lagoon Nebula (M8)", Kind: KindDeepSky, Difficulty: Binoculars, Source: Source{RAHours: 18.0603, DecDeg: -24.3833}},
	{ID: "m57", Name: "Ring Nebula (M57)", Kind: KindDeepSky, Difficulty: Telescope, Source: Source{RAHours: 18.8932, DecDeg: 33.0292}},

	// Southern sky
	{ID: "ngc5139", Name: "Omega Centauri", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 13.4462, DecDeg: -47.4794}},
	{ID: "ngc104", Name: "47 Tucanae", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 0.4014, DecDeg: -72.0811}},
	{ID: "lmc", Name: "Large Magellanic Cloud", Kind: KindDeepSky, Difficulty: NakedEye, Source: Source{RAHours: 5.3923, DecDeg: -69.7561}},
}

// byID maps identifiers to seed entries for quick lookup.
var byID = func() map[ObjectID]Object {
	m := make(map[ObjectID]Object, len(seed))
	for _, o := range seed {
		m[o.ID] = o
	}
	return m
}()

// byName maps lowercase display names and ids to seed entries.
var byName = func() map[string]Object {
	m := make(map[string]Object, len(seed)*2)
	for _, o := range seed {
		m[strings.ToLower(o.Name)] = o
		m[strings.ToLower(string(o.ID))] = o
	}
	return m
}()

// Default returns a freshly seeded catalog. Every call returns new values.
func Default() []Object {
	out := make([]Object, len(seed))
	copy(out, seed)
	return out
}

// Select returns the seed entries for ids, in order. Unknown ids are
// reported in missing.
func Select(ids []ObjectID) (objects []Object, missing []ObjectID) {
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			objects = append(objects, o)
		} else {
			missing = append(missing, id)
		}
	}
	return objects, missing
}

// Get returns the seed entry for id.
func Get(id ObjectID) (Object, bool) {
	o, ok := byID[id]
	return o, ok
}

// GetByName returns the seed entry for a display name or id (case-insensitive).
func GetByName(name string) (Object, bool) {
	o, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return o, ok
}

// Lookup returns the index of id in objects, or -1.
func Lookup(objects []Object, id ObjectID) int {
	for i := range objects {
		if objects[i].ID == id {
			return i
		}
	}
	return -1
}

// OfKind filters objects to the given kinds.
func OfKind(objects []Object, kinds ...Kind) []Object {
	var out []Object
	for _, o := range objects {
		for _, k := range kinds {
			if o.Kind == k {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
