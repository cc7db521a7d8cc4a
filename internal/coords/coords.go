// Package coords provides coordinate transformations shared by the
// instrument method packages. Based on J.M. Ruohoniemi's geopack and
// R.J. Barnes radar.pro.
package coords

import "math"

// WGS-84 ellipsoid
const (
	radEq   = 6378.1370          // semi-major axis [km]
	flat    = 1.0 / 298.257223563 // flattening
	meanRad = 6371.0             // mean Earth radius [km]
)

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// GeodeticToGeocentric converts latitude between geodetic and geocentric
// systems. Longitude is unchanged by this conversion. Returns the converted
// latitude in degrees and the Earth radius in km at that latitude.
// inverse=false converts geodetic to geocentric, inverse=true the reverse.
func GeodeticToGeocentric(latIn float64, inverse bool) (latOut, radEarth float64) {
	radPol := radEq * (1.0 - flat)

	// Square of the ratio between the semi-major and semi-minor axes
	radRatioSq := (radEq / radPol) * (radEq / radPol)

	// Square of the second eccentricity (e')
	eprimeSq := radRatioSq - 1.0

	tanIn := math.Tan(radians(latIn))

	if !inverse {
		radRatioSq = 1.0 / radRatioSq
	}

	latOut = degrees(math.Atan(radRatioSq * tanIn))

	sinOut := math.Sin(radians(latOut))
	radEarth = radEq / math.Sqrt(1.0+eprimeSq*sinOut*sinOut)

	return latOut, radEarth
}

// GeodeticToGeocentricHorizontal converts local horizontal look angles
// between a geodetic and a geocentric system centered at latIn, lonIn.
// Returns the converted center latitude and longitude in degrees, the Earth
// radius in km at the converted center, and the converted azimuth and
// elevation in degrees.
func GeodeticToGeocentricHorizontal(latIn, lonIn, azIn, elIn float64, inverse bool) (latOut, lonOut, radEarth, azOut, elOut float64) {
	az := radians(azIn)
	el := radians(elIn)

	latOut, radEarth = GeodeticToGeocentric(latIn, inverse)
	lonOut = lonIn

	// Deviation from vertical in radians
	devVert := radians(latIn - latOut)

	// Cartesian coordinates in the local system
	xLocal := math.Cos(el) * math.Sin(az)
	yLocal := math.Cos(el) * math.Cos(az)
	zLocal := math.Sin(el)

	// Rotate about the x axis to align the local vertical vector with the
	// Earth radial vector
	xOut := xLocal
	yOut := yLocal*math.Cos(devVert) + zLocal*math.Sin(devVert)
	zOut := -yLocal*math.Sin(devVert) + zLocal*math.Cos(devVert)

	azOut = degrees(math.Atan2(xOut, yOut))
	elOut = degrees(math.Atan(zOut / math.Sqrt(xOut*xOut+yOut*yOut)))

	return latOut, lonOut, radEarth, azOut, elOut
}

// SphericalToCartesian converts a position in spherical coordinates
// (azimuth and elevation in degrees, radius in km) to cartesian km.
// The elevation angle is measured from the xy plane, not the z axis.
func SphericalToCartesian(azIn, elIn, rIn float64) (x, y, z float64) {
	// Spherical coordinates use the zenith angle from the z axis
	zen := radians(90.0 - elIn)

	x = rIn * math.Sin(zen) * math.Cos(radians(azIn))
	y = rIn * math.Sin(zen) * math.Sin(radians(azIn))
	z = rIn * math.Cos(zen)

	return x, y, z
}

// CartesianToSpherical converts a cartesian position in km to azimuth and
// elevation in degrees and radius in km.
func CartesianToSpherical(xIn, yIn, zIn float64) (az, el, r float64) {
	xySq := xIn*xIn + yIn*yIn
	r = math.Sqrt(xySq + zIn*zIn)
	el = 90.0 - degrees(math.Atan2(math.Sqrt(xySq), zIn))
	az = degrees(math.Atan2(yIn, xIn))
	return az, el, r
}

// GlobalToLocalCartesian converts a position between the global cartesian
// system (origin at the center of the Earth, x intersecting the equatorial
// plane and the prime meridian, z pointing North) and a local cartesian
// system centered at latCent, lonCent, radCent with z up, y North, x East.
// inverse=false converts global to local, inverse=true the reverse.
func GlobalToLocalCartesian(xIn, yIn, zIn, latCent, lonCent, radCent float64, inverse bool) (xOut, yOut, zOut float64) {
	// Global cartesian coordinates of the local origin
	xCent, yCent, zCent := SphericalToCartesian(lonCent, latCent, radCent)

	// Rotation needed to align the z axis with the Earth's rotational axis
	axRot := radians(90.0 - latCent)

	// Rotation needed to align the global x axis with the prime meridian
	merRot := radians(lonCent - 90.0)

	if inverse {
		xrot := xIn
		yrot := yIn*math.Cos(axRot) - zIn*math.Sin(axRot)
		zrot := yIn*math.Sin(axRot) + zIn*math.Cos(axRot)

		xOut = xrot*math.Cos(merRot) - yrot*math.Sin(merRot) + xCent
		yOut = xrot*math.Sin(merRot) + yrot*math.Cos(merRot) + yCent
		zOut = zrot + zCent
	} else {
		xtrans := xIn - xCent
		ytrans := yIn - yCent
		ztrans := zIn - zCent

		// Rotate about the global z axis to point the local x axis East
		xrot := xtrans*math.Cos(-merRot) - ytrans*math.Sin(-merRot)
		yrot := xtrans*math.Sin(-merRot) + ytrans*math.Cos(-merRot)
		zrot := ztrans

		// Rotate about the x axis to point the z axis up
		xOut = xrot
		yOut = yrot*math.Cos(-axRot) - zrot*math.Sin(-axRot)
		zOut = yrot*math.Sin(-axRot) + zrot*math.Cos(-axRot)
	}

	return xOut, yOut, zOut
}

// LocalHorizontalToGlobalGeo converts a point seen from an origin at
// latOrig, lonOrig (degrees), altOrig (km above the surface) along azimuth
// az, elevation el (degrees) at distance dist (km) into global geographic
// coordinates. geodetic selects whether the origin coordinates, and
// therefore the returned coordinates, are geodetic or geocentric.
// Returns latitude and longitude in degrees and either the altitude above
// the surface (geodetic) or the distance from the center of the Earth
// (geocentric) in km.
func LocalHorizontalToGlobalGeo(az, el, dist, latOrig, lonOrig, altOrig float64, geodetic bool) (latPnt, lonPnt, radPnt float64) {
	var glat, glon, grad, gaz, gel float64

	if geodetic {
		var rearth float64
		glat, glon, rearth, gaz, gel = GeodeticToGeocentricHorizontal(latOrig, lonOrig, az, el, false)
		grad = rearth + altOrig
	} else {
		glat = latOrig
		glon = lonOrig
		grad = altOrig + meanRad
		gaz = az
		gel = el
	}

	// Local horizontal to local cartesian
	xLoc, yLoc, zLoc := SphericalToCartesian(gaz, gel, dist)

	// Local to global cartesian
	xGlob, yGlob, zGlob := GlobalToLocalCartesian(xLoc, yLoc, zLoc, glat, glon, grad, true)

	// Global cartesian to geocentric
	lonPnt, latPnt, radPnt = CartesianToSpherical(xGlob, yGlob, zGlob)

	if geodetic {
		var rearth float64
		latPnt, rearth = GeodeticToGeocentric(latPnt, true)
		radPnt = rearth + radPnt - meanRad
	}

	return latPnt, lonPnt, radPnt
}
