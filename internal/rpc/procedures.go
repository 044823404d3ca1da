package rpc

const (
	// OrganizationServiceName is the fully-qualified name of the OrganizationService service.
	OrganizationServiceName = "tenancy.v1.OrganizationService"
	// ProjectServiceName is the fully-qualified name of the ProjectService service.
	ProjectServiceName = "tenancy.v1.ProjectService"
)

// Procedure paths. Each is the service path followed by the method name.
const (
	ListOrganizationsProcedure  = "/tenancy.v1.OrganizationService/ListOrganizations"
	GetOrganizationProcedure    = "/tenancy.v1.OrganizationService/GetOrganization"
	CreateOrganizationProcedure = "/tenancy.v1.OrganizationService/CreateOrganization"
	UpdateOrganizationProcedure = "/tenancy.v1.OrganizationService/UpdateOrganization"
	DeleteOrganizationProcedure = "/tenancy.v1.OrganizationService/DeleteOrganization"
	ListMembersProcedure        = "/tenancy.v1.OrganizationService/ListMembers"
	AddMemberProcedure          = "/tenancy.v1.OrganizationService/AddMember"
	UpdateMemberRoleProcedure   = "/tenancy.v1.OrganizationService/UpdateMemberRole"
	RemoveMemberProcedure       = "/tenancy.v1.OrganizationService/RemoveMember"

	ListProjectsProcedure  = "/tenancy.v1.ProjectService/ListProjects"
	GetProjectProcedure    = "/tenancy.v1.ProjectService/GetProject"
	CreateProjectProcedure = "/tenancy.v1.ProjectService/CreateProject"
	UpdateProjectProcedure = "/tenancy.v1.ProjectService/UpdateProject"
	DeleteProjectProcedure = "/tenancy.v1.ProjectService/DeleteProject"
)

// OrganizationServicePath and ProjectServicePath are the mux prefixes of the services.
const (
	OrganizationServicePath = "/" + OrganizationServiceName + "/"
	ProjectServicePath      = "/" + ProjectServiceName + "/"
)
