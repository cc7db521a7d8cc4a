package cedar

// Rules returns the general warning that comes with all CEDAR Madrigal data.
func Rules() string {
	return "Contact the PI when using this data, in accordance with the CEDAR 'Rules of the Road'."
}
