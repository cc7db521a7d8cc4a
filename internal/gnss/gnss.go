// Package gnss provides methods supporting the Global Navigation Satellite
// System total electron content products.
package gnss

// Acknowledgements returns the acknowledgement text for GNSS TEC data.
func Acknowledgements() string {
	return "GPS TEC data products and access through the Madrigal distributed " +
		"data system are provided to the community by the Massachusetts Institute " +
		"of Technology under support from U.S. National Science Foundation grant " +
		"AGS-1242204. Data for the TEC processing is provided by the following " +
		"organizations: UNAVCO, Scripps Orbit and Permanent Array Center, " +
		"Institut Geographique National, France, International GNSS Service, " +
		"The Crustal Dynamics Data Information System (CDDIS), National Geodetic " +
		"Survey, Instituto Brasileiro de Geografia e Estatistica, RAMSAC CORS of " +
		"Instituto Geografico Nacional de la Republica Argentina, Arecibo " +
		"Observatory, Low-Latitude Ionospheric Sensor Network (LISN), Topcon " +
		"Positioning Systems, Inc., Canadian High Arctic Ionospheric Network, " +
		"Institute of Geology and Geophysics, Chinese Academy of Sciences, China " +
		"Meteorology Administration, Centre de Recherche Sismologique, Systeme " +
		"d'Observation du Niveau des Eaux Littorales (SONEL), RENAG: REseau " +
		"NAtional GPS permanent, and GeoNet, the official source of geological " +
		"hazard information for New Zealand."
}

// References returns the suggested reference for the vertical TEC product.
func References() string {
	return "Rideout and Coster (2006) doi:10.1007/s10291-006-0029-5"
}
