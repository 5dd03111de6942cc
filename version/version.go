package version

// Name is the program name, also sent in the User-Agent
const Name = "netatmo-cameras"

// Version is the Major.Minor.Patch tag from GIT, set by the Makefile with
// -ldflags "-X"; 'dev' otherwise
var Version string = "dev"

func UserAgent() string {
	return Name + "/" + Version
}
