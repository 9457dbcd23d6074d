// Package config defines what a fit run is configured with and loads it.
//
// A fit is described in HCL:
//
//	fit {
//	  vrot = [10, 20, 2]
//	  He   = [10.89, 10.95, 0.02]
//	}
//
//	synthesis {
//	  teff    = 20000
//	  logg    = 4
//	  observ  = "hd1234.dat"
//	  windows = [[4465, 4475]]
//	  rv      = 50
//	  abund   = { S = 7.12 }
//	  extra   = { wstart = 4460, wend = 4480 }
//	}
//
// The order of the attributes in the fit block is the order of the grid
// dimensions. Any attribute of the synthesis block that is not one of the
// known settings is handed to the synthesis program unchanged.
//
// Machine-specific settings that do not belong to a fit (where SYNPLOT lives,
// IDL or GDL, timeouts) come from a TOML defaults file, see Defaults.
package config
