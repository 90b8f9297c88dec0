package index

import "github.com/talentdesk/backoffice/pkg/models"

// Store path conventions. The remote record store is hierarchical;
// every helper returns a slash-separated path relative to the root.

const (
	recordsRoot   = "records"
	flatIndexRoot = "registrations_index"
	managerRoot   = "manager_index"
	employeeRoot  = "employee_index"
	appsRoot      = "applications"
)

// ClientPath addresses a client profile record.
func ClientPath(clientID string) string {
	return recordsRoot + "/" + clientID
}

// ClientsRoot addresses the whole client roster.
func ClientsRoot() string { return recordsRoot }

// RegistrationPath addresses the primary registration record.
func RegistrationPath(clientID, registrationID string) string {
	return recordsRoot + "/" + clientID + "/registrations/" + registrationID
}

// FlatIndexRoot addresses the whole flat search index.
func FlatIndexRoot() string { return flatIndexRoot }

// FlatIndexPath addresses one flat index record.
func FlatIndexPath(clientID, registrationID string) string {
	return flatIndexRoot + "/" + clientID + "_" + registrationID
}

// ManagerIndexRoot addresses one manager's reverse index collection.
func ManagerIndexRoot(managerID string) string {
	return managerRoot + "/" + managerID
}

// ManagerIndexPath addresses one manager reverse-index entry.
func ManagerIndexPath(managerID, clientID, registrationID string) string {
	return managerRoot + "/" + managerID + "/" + clientID + "_" + registrationID
}

// EmployeeIndexRoot addresses one employee's reverse index collection.
func EmployeeIndexRoot(employeeID string) string {
	return employeeRoot + "/" + employeeID
}

// EmployeeIndexAll addresses the whole employee reverse index, used by
// the reconcile sweep.
func EmployeeIndexAll() string { return employeeRoot }

// EmployeeIndexPath addresses one employee reverse-index entry.
func EmployeeIndexPath(employeeID, clientID, registrationID string) string {
	return employeeRoot + "/" + employeeID + "/" + clientID + "_" + registrationID
}

// ApplicationsPath addresses a registration's job application
// collection. Edits replace the whole collection.
func ApplicationsPath(clientID, registrationID string) string {
	return appsRoot + "/" + clientID + "/" + registrationID
}

func managerEntry(r models.Registration) string {
	return ManagerIndexPath(r.AssignedManager, r.ClientID, r.RegistrationID)
}

func employeeEntry(r models.Registration) string {
	return EmployeeIndexPath(r.AssignedTo, r.ClientID, r.RegistrationID)
}
