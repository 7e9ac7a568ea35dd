package domain

var explanations = map[Variable]string{
	VariableTemperature: "Temperature in ARGO profiles is sea water temperature in °C. It is usually warmest in the " +
		"mixed layer near the surface, drops quickly through the thermocline over the upper few hundred " +
		"metres, and stays cold and stable in the deep ocean.",
	VariableSalinity: "Salinity measures how much dissolved salt the sea water holds, reported in practical " +
		"salinity units (PSU). Open ocean values sit mostly between 34 and 36 PSU; evaporation raises them " +
		"and rainfall or river outflow lowers them.",
	VariablePressure: "Pressure is what a float's sensor measures as it rises, reported in decibars (dbar). " +
		"One decibar of sea water corresponds to roughly one metre of depth, which is how depth is derived.",
	VariableOxygen: "Dissolved oxygen, in μmol/kg, is measured by biogeochemical floats. Concentrations are high " +
		"near the surface where the water exchanges with the air and fall to a minimum zone at intermediate depths.",
}

const generalExplanation = "ARGO floats are autonomous instruments that drift with ocean currents and dive to " +
	"about 2000 m, recording temperature, salinity and pressure on the way back up. You can ask me for an " +
	"average, maximum or minimum at a depth, a depth profile, or a comparison between floats."

// Explain returns the canned explanation for v, or the general ARGO overview.
func Explain(v Variable) string {
	if s, ok := explanations[v]; ok {
		return s
	}
	return generalExplanation
}
