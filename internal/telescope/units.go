package telescope

// Units: lengths in mm, momenta and energies in GeV, fields in T.

// CurvatureConstant converts field × length to momentum: GeV/(T·mm).
const CurvatureConstant = 0.299792458e-3
